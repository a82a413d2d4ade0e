package session

import (
	"errors"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"github.com/tb0hdan/csak/pkg/catalog"
	"github.com/tb0hdan/csak/pkg/metadata"
)

var testCatalog = &catalog.Catalog{
	Root: "/scripts",
	Categories: []catalog.Category{
		{Name: "empty"},
		{Name: "net"},
		{Name: "pki"},
	},
	Entries: []catalog.Entry{
		{Index: 0, Category: "net", Name: "scan", Path: "/scripts/net/scan.py"},
		{Index: 1, Category: "net", Name: "sweep", Path: "/scripts/net/sweep.py"},
		{Index: 2, Category: "pki", Name: "crawl", Path: "/scripts/pki/crawl.py"},
		{Index: 3, Category: "pki", Name: "sweep", Path: "/scripts/pki/sweep.py"},
	},
}

var testOptions = map[string][]metadata.OptionSpec{
	"/scripts/net/scan.py": {
		{Key: "target", Flag: "--target", Required: true, TakesValue: true, Help: "Target host"},
		{Key: "verbose", Flag: "--verbose", TakesValue: false},
		{Key: "ports", Flag: "-p", Default: "1-1024", HasDefault: true, TakesValue: true},
	},
	"/scripts/net/sweep.py": {
		{Key: "range", Flag: "--range", Required: true, TakesValue: true},
		{Key: "exclude", Positional: true, TakesValue: true},
	},
	"/scripts/pki/crawl.py": {
		{Key: "domain", Flag: "-domain", Required: true, TakesValue: true},
		{Key: "output", Flag: "-output", Required: true, TakesValue: true},
	},
}

type SessionTestSuite struct {
	suite.Suite
	loads   []string
	session *Session
}

func (s *SessionTestSuite) SetupTest() {
	s.loads = nil
	s.session = New(zerolog.Nop(), testCatalog, func(path string) ([]metadata.OptionSpec, error) {
		s.loads = append(s.loads, path)
		specs, ok := testOptions[path]
		if !ok {
			return nil, errors.New("unreadable")
		}
		return specs, nil
	})
}

func (s *SessionTestSuite) TestNew_Idle() {
	s.Equal(Idle, s.session.State())
	s.NotEmpty(s.session.ID())
	_, ok := s.session.Selected()
	s.False(ok)
	s.Empty(s.session.Category())
}

func (s *SessionTestSuite) TestSelectByIndex() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Equal(UtilitySelected, s.session.State())
	s.Equal("net", s.session.Category())
	entry, ok := s.session.Selected()
	s.True(ok)
	s.Equal("net/scan", entry.ID())
	s.Len(s.session.Specs(), 3)
	s.Equal([]string{"/scripts/net/scan.py"}, s.loads)
}

func (s *SessionTestSuite) TestSelectByIndex_OutOfRange() {
	for _, index := range []int{-1, 4, 100} {
		err := s.session.SelectByIndex(index)
		s.ErrorIs(err, ErrIndexOutOfRange)
	}
	s.Equal(Idle, s.session.State())
	s.Empty(s.loads)
}

func (s *SessionTestSuite) TestSelectByIndex_IdempotentClearsValues() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("target", StringValue("10.0.0.1")))

	s.Require().NoError(s.session.SelectByIndex(0))
	entry, _ := s.session.Selected()
	s.Equal("net/scan", entry.ID())
	s.Empty(s.session.Assignments())
	s.Len(s.loads, 2, "options are re-extracted on every selection")
}

func (s *SessionTestSuite) TestSelectByPath() {
	s.Require().NoError(s.session.SelectByPath("pki", "crawl"))
	entry, _ := s.session.Selected()
	s.Equal(2, entry.Index)

	err := s.session.SelectByPath("pki", "scan")
	s.ErrorIs(err, ErrUnknownTool)
	entry, _ = s.session.Selected()
	s.Equal("pki/crawl", entry.ID(), "failed selection keeps the previous one")
}

func (s *SessionTestSuite) TestSelectCategory() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("target", StringValue("x")))

	s.Require().NoError(s.session.SelectCategory("pki"))
	s.Equal(CategorySelected, s.session.State())
	s.Equal("pki", s.session.Category())
	_, ok := s.session.Selected()
	s.False(ok)
	s.Empty(s.session.Specs())
	s.Empty(s.session.Assignments())

	s.ErrorIs(s.session.SelectCategory("web"), ErrUnknownCategory)
	s.Equal("pki", s.session.Category())

	s.Require().NoError(s.session.SelectCategory("empty"))
}

func (s *SessionTestSuite) TestSelectTool() {
	s.Require().NoError(s.session.SelectTool("crawl"))
	entry, _ := s.session.Selected()
	s.Equal("pki/crawl", entry.ID())

	s.session.Back()
	s.session.Back()
	err := s.session.SelectTool("sweep")
	s.ErrorIs(err, ErrUnknownTool, "ambiguous across categories")

	s.Require().NoError(s.session.SelectCategory("net"))
	s.Require().NoError(s.session.SelectTool("sweep"))
	entry, _ = s.session.Selected()
	s.Equal("net/sweep", entry.ID())

	s.ErrorIs(s.session.SelectTool("crawl"), ErrUnknownTool)
}

func (s *SessionTestSuite) TestBack() {
	s.session.Back()
	s.Equal(Idle, s.session.State())

	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("target", StringValue("x")))
	s.session.Back()
	s.Equal(CategorySelected, s.session.State())
	s.Equal("net", s.session.Category())
	s.Empty(s.session.Assignments())

	s.session.Back()
	s.Equal(Idle, s.session.State())
	s.Empty(s.session.Category())
}

func (s *SessionTestSuite) TestUnreadableSourceSelectsWithoutOptions() {
	s.Require().NoError(s.session.SelectByPath("pki", "sweep"))
	s.Equal(UtilitySelected, s.session.State())
	s.Empty(s.session.Specs())
	s.Empty(s.session.MissingRequired().ToSlice())
}

func (s *SessionTestSuite) TestSetOption_RoundTrip() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("target", StringValue("10.0.0.1")))

	rows := s.session.CurrentTable()
	s.Require().Len(rows, 3)
	s.Equal(Row{Key: "target", Required: true, Value: "10.0.0.1", Help: "Target host"}, rows[0])
	s.Equal("false", rows[1].Default)
	s.Equal("1-1024", rows[2].Default)
	s.Empty(rows[2].Value)
}

func (s *SessionTestSuite) TestSetOption_Invalid() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("target", StringValue("a")))

	err := s.session.SetOption("tagret", StringValue("b"))
	var invalid *InvalidOptionError
	s.Require().ErrorAs(err, &invalid)
	s.Equal("tagret", invalid.Key)

	assignments := s.session.Assignments()
	s.Require().Len(assignments, 1)
	s.Equal("a", assignments[0].Value.Text())
	_, ok := s.session.Value("tagret")
	s.False(ok)
}

func (s *SessionTestSuite) TestSetOption_FlagPresentNeedsFlagOnlyOption() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("ports", StringValue("22")))

	s.ErrorIs(s.session.SetOption("target", FlagPresent()), ErrValueRequired)
	s.True(s.session.MissingRequired().Equal(mapset.NewSet("target")))

	assignments := s.session.Assignments()
	s.Require().Len(assignments, 1)
	s.Equal("ports", assignments[0].Spec.Key)
	s.ErrorIs(s.session.SetOption("ports", FlagPresent()), ErrValueRequired)
	value, ok := s.session.Value("ports")
	s.True(ok)
	s.Equal("22", value.Text())

	s.NoError(s.session.SetOption("verbose", FlagPresent()))
}

func (s *SessionTestSuite) TestSetOption_FlagPresentOnPositional() {
	s.Require().NoError(s.session.SelectByIndex(1))

	s.ErrorIs(s.session.SetOption("exclude", FlagPresent()), ErrValueRequired)
	_, ok := s.session.Value("exclude")
	s.False(ok)
	s.Empty(s.session.Assignments())
}

func (s *SessionTestSuite) TestSetOption_NoToolSelected() {
	s.ErrorIs(s.session.SetOption("target", StringValue("x")), ErrNoToolSelected)
	_, err := s.session.SetOptionText("target", "x")
	s.ErrorIs(err, ErrNoToolSelected)
}

func (s *SessionTestSuite) TestSetOption_InsertionOrderKept() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("ports", StringValue("22")))
	s.Require().NoError(s.session.SetOption("target", StringValue("a")))
	s.Require().NoError(s.session.SetOption("ports", StringValue("80")))

	assignments := s.session.Assignments()
	s.Require().Len(assignments, 2)
	s.Equal("ports", assignments[0].Spec.Key)
	s.Equal("80", assignments[0].Value.Text())
	s.Equal("target", assignments[1].Spec.Key)
}

func (s *SessionTestSuite) TestSetOptionText_FlagToggle() {
	s.Require().NoError(s.session.SelectByIndex(0))

	value, err := s.session.SetOptionText("verbose", "")
	s.Require().NoError(err)
	s.True(value.IsFlag())
	stored, ok := s.session.Value("verbose")
	s.True(ok)
	s.True(stored.IsFlag())

	_, err = s.session.SetOptionText("verbose", "")
	s.Require().NoError(err)
	_, ok = s.session.Value("verbose")
	s.False(ok, "second bare set toggles the flag off")
}

func (s *SessionTestSuite) TestSetOptionText_ValueOnFlagPassedThrough() {
	s.Require().NoError(s.session.SelectByIndex(0))
	value, err := s.session.SetOptionText("verbose", "yes")
	s.Require().NoError(err)
	s.False(value.IsFlag())
	s.Equal("yes", value.Text())
}

func (s *SessionTestSuite) TestSetOptionText_ValueRequired() {
	s.Require().NoError(s.session.SelectByIndex(0))
	_, err := s.session.SetOptionText("target", "")
	s.ErrorIs(err, ErrValueRequired)
	_, ok := s.session.Value("target")
	s.False(ok)
}

func (s *SessionTestSuite) TestUnsetOption() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("target", StringValue("a")))
	s.Require().NoError(s.session.SetOption("ports", StringValue("22")))

	s.Require().NoError(s.session.UnsetOption("target"))
	s.Require().NoError(s.session.UnsetOption("target"))
	s.Len(s.session.Assignments(), 1)

	var invalid *InvalidOptionError
	s.ErrorAs(s.session.UnsetOption("nope"), &invalid)

	s.session.UnsetAll()
	s.Empty(s.session.Assignments())
}

func (s *SessionTestSuite) TestMissingRequired() {
	s.Require().NoError(s.session.SelectByPath("pki", "crawl"))
	s.True(s.session.MissingRequired().Equal(mapset.NewSet("domain", "output")))

	s.Require().NoError(s.session.SetOption("domain", StringValue("example.com")))
	s.Require().NoError(s.session.SetOption("output", StringValue("")))
	s.Equal([]string{"output"}, SortedKeys(s.session.MissingRequired()))

	s.Require().NoError(s.session.SetOption("output", StringValue("out.csv")))
	s.Equal(0, s.session.MissingRequired().Cardinality())
}

func (s *SessionTestSuite) TestSwitchingUtilityDiscardsOptions() {
	s.Require().NoError(s.session.SelectByIndex(0))
	s.Require().NoError(s.session.SetOption("target", StringValue("10.0.0.1")))
	s.Require().NoError(s.session.SetOption("verbose", FlagPresent()))

	s.Require().NoError(s.session.SelectByIndex(2))
	rows := s.session.CurrentTable()
	s.Require().Len(rows, 2)
	for _, row := range rows {
		s.Empty(row.Value)
	}
	s.Equal([]string{"domain", "output"}, s.session.Keys())
	s.ErrorAs(s.session.SetOption("target", StringValue("x")), new(*InvalidOptionError))
}

func (s *SessionTestSuite) TestReplaceCatalog() {
	s.Require().NoError(s.session.SelectByIndex(1))
	s.Require().NoError(s.session.SetOption("range", StringValue("10.0.0.0/24")))

	rescanned := &catalog.Catalog{
		Categories: []catalog.Category{{Name: "net"}},
		Entries: []catalog.Entry{
			{Index: 0, Category: "net", Name: "sweep", Path: "/scripts/net/sweep.py"},
		},
	}
	s.session.ReplaceCatalog(rescanned)
	entry, ok := s.session.Selected()
	s.True(ok)
	s.Equal(0, entry.Index, "selection follows the new positional index")
	s.Empty(s.session.Assignments())

	s.session.ReplaceCatalog(&catalog.Catalog{Categories: []catalog.Category{{Name: "net"}}})
	s.Equal(CategorySelected, s.session.State())

	s.session.ReplaceCatalog(&catalog.Catalog{})
	s.Equal(Idle, s.session.State())
}

func (s *SessionTestSuite) TestStateString() {
	s.Equal("idle", Idle.String())
	s.Equal("category-selected", CategorySelected.String())
	s.Equal("utility-selected", UtilitySelected.String())
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
