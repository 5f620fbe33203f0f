package locations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
)

func TestGroupByRegion(t *testing.T) {
	locs := []Location{
		{ID: uuid.New(), PostcodeInitials: "M", Region: "North West", CityName: "Manchester"},
		{ID: uuid.New(), PostcodeInitials: "L", Region: "north west", CityName: "liverpool"},
		{ID: uuid.New(), PostcodeInitials: "EH", Region: "Scotland", CityName: "Edinburgh"},
		{ID: uuid.New(), PostcodeInitials: "TR", Region: "South West ", CityName: "Truro"},
		{ID: uuid.New(), PostcodeInitials: "IP", Region: "East England", CityName: "Ipswich"},
		{ID: uuid.New(), PostcodeInitials: "ZE", Region: "", CityName: "Lerwick"},
	}

	groups := GroupByRegion(locs, regions.DefaultColorTable())

	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Region
	}
	assert.Equal(t, []string{"Scotland", "North West", "South West", "default", "East England"}, names)

	nw := groups[1]
	assert.Equal(t, "#2E86AB", nw.Color)
	require.Len(t, nw.Cities, 2)
	assert.Equal(t, "liverpool", nw.Cities[0].Name)
	assert.Equal(t, "Manchester", nw.Cities[1].Name)

	assert.Equal(t, regions.DefaultColor, groups[4].Color)
}

func TestBuildLookup(t *testing.T) {
	id := uuid.New()
	lookup := BuildLookup([]Location{
		{ID: id, PostcodeInitials: " b ", Region: "Midlands", CityName: "Birmingham"},
		{ID: uuid.New(), PostcodeInitials: ""},
	})

	require.Len(t, lookup, 1)
	assert.Equal(t, regions.LocationRef{ID: id, Region: "Midlands", CityName: "Birmingham"}, lookup["B"])
}

func TestParseCSV(t *testing.T) {
	in := "\ufeffpostcode_initials,region,city_name\n" +
		"m, North West, Manchester\n" +
		",,\n" +
		"EH,Scotland,\"Edinburgh, City of\"\n"

	rows, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{PostcodeInitials: "M", Region: "North West", CityName: "Manchester"},
		{PostcodeInitials: "EH", Region: "Scotland", CityName: "Edinburgh, City of"},
	}, rows)
}

func TestParseCSVErrors(t *testing.T) {
	cases := map[string]string{
		"missing column": "postcode_initials,region\nM,North West\n",
		"bad postcode":   "postcode_initials,region,city_name\nM1,North West,Manchester\n",
		"duplicate":      "postcode_initials,region,city_name\nM,North West,Manchester\nm,North West,Salford\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(in))
			assert.Error(t, err)
		})
	}

	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRows)
	_, err = ParseCSV(strings.NewReader("postcode_initials,region,city_name\n"))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestImportUpserts(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WithArgs(int64(4242)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`INSERT INTO clientmap.locations`).
		WithArgs("M", "North West", "Manchester").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectQuery(`INSERT INTO clientmap.locations`).
		WithArgs("EH", "Scotland", "Edinburgh").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
	mock.ExpectCommit()

	res, err := Import(context.Background(), conn, []Row{
		{PostcodeInitials: "M", Region: "North West", CityName: "Manchester"},
		{PostcodeInitials: "EH", Region: "Scotland", CityName: "Edinburgh"},
	}, 4242)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Inserted: 1, Updated: 1}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRollsBackOnError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO clientmap.locations`).WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	_, err = Import(context.Background(), conn, []Row{{PostcodeInitials: "M"}}, 0)
	assert.ErrorContains(t, err, "upsert M")
	require.NoError(t, mock.ExpectationsWereMet())
}
