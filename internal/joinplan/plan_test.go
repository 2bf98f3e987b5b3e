package joinplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func measurementDescs() []*TableDescription {
	return []*TableDescription{
		{
			TableName: "meas1",
			Columns:   []string{"id", "date", "weight"},
			Keys:      map[string]string{"person": "id"},
		},
		{
			TableName: "names",
			Columns:   []string{"pid", "name"},
			Keys:      map[string]string{"person": "pid"},
		},
		{
			TableName: "meas2",
			Columns:   []string{"id", "date", "height"},
			Keys:      map[string]string{"person": "id"},
		},
	}
}

func TestBuild_ChainOfThree(t *testing.T) {
	result, err := Build(measurementDescs(), BuildOptions{})
	require.NoError(t, err)
	plan := result.Plan

	assert.Equal(t, []string{"meas1", "names", "meas2"}, plan.Tables())
	require.Len(t, plan.Rows, 8)

	// Every table's key column renames onto the primary's concrete
	// column, so the chain joins on name equality.
	assert.Equal(t, Row{TableName: "meas1", SourceColumn: "id", ResultColumn: "id", IsKey: true, Want: true}, plan.Rows[0])
	assert.Equal(t, Row{TableName: "names", SourceColumn: "pid", ResultColumn: "id", IsKey: true, Want: true}, plan.Rows[3])
	assert.Equal(t, Row{TableName: "meas2", SourceColumn: "id", ResultColumn: "id", IsKey: true, Want: true}, plan.Rows[5])

	// meas2.date lost the name to meas1.date: demoted, not dropped.
	assert.Equal(t, Row{TableName: "meas2", SourceColumn: "date", ResultColumn: "date", Want: false}, plan.Rows[6])
	require.Len(t, result.Demotions, 1)
	assert.Equal(t, Demotion{TableName: "meas2", SourceColumn: "date", ResultColumn: "date", ClaimedBy: "meas1"}, result.Demotions[0])
}

func TestBuild_CompositeKeys(t *testing.T) {
	descs := []*TableDescription{
		{
			TableName: "meas1",
			Columns:   []string{"id", "date", "weight"},
			Keys:      map[string]string{"PatientID": "id", "MeasurementDate": "date"},
		},
		{
			TableName: "names",
			Columns:   []string{"pid", "name"},
			Keys:      map[string]string{"PatientID": "pid"},
		},
		{
			TableName: "meas2",
			Columns:   []string{"id", "date", "height"},
			Keys:      map[string]string{"PatientID": "id", "MeasurementDate": "date"},
		},
	}

	result, err := Build(descs, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, result.Plan.Rows, 8, "one row per (table, column)")
	assert.Empty(t, result.Demotions, "meas2.date is a key, not a collision")

	var keyRows int
	for _, r := range result.Plan.Rows {
		if r.IsKey {
			keyRows++
			assert.True(t, r.Want, "key rows are always wanted")
		}
	}
	assert.Equal(t, 5, keyRows)

	// A table may declare a subset of the available keys.
	assert.Equal(t, Row{TableName: "names", SourceColumn: "pid", ResultColumn: "id", IsKey: true, Want: true}, result.Plan.Rows[3])
}

func TestBuild_UnresolvableKey(t *testing.T) {
	descs := measurementDescs()[:2]
	descs[1].Keys = map[string]string{"name": "name"}

	_, err := Build(descs, BuildOptions{})
	require.Error(t, err)
	var uke *UnresolvableKeyError
	require.ErrorAs(t, err, &uke)
	assert.Equal(t, "names", uke.TableName)
	assert.Equal(t, "name", uke.Key)
}

func TestBuild_KeySetNeverGrows(t *testing.T) {
	// The second table introduces an extra key the primary does not
	// have; a third table must not be able to use it.
	descs := []*TableDescription{
		{TableName: "a", Columns: []string{"id", "v"}, Keys: map[string]string{"person": "id"}},
		{TableName: "b", Columns: []string{"id", "site", "w"}, Keys: map[string]string{"person": "id"}},
		{TableName: "c", Columns: []string{"site", "x"}, Keys: map[string]string{"site": "site"}},
	}
	_, err := Build(descs, BuildOptions{})
	var uke *UnresolvableKeyError
	require.ErrorAs(t, err, &uke)
	assert.Equal(t, "c", uke.TableName)
	assert.Equal(t, "site", uke.Key)
}

func TestBuild_RejectCollisions(t *testing.T) {
	_, err := Build(measurementDescs(), BuildOptions{Collisions: CollisionReject})
	require.Error(t, err)
	var ce *CollisionError
	require.ErrorAs(t, err, &ce)
	require.Len(t, ce.Collisions, 1)
	assert.Equal(t, "meas2", ce.Collisions[0].TableName)
	assert.Equal(t, "date", ce.Collisions[0].SourceColumn)
}

func TestBuild_PrimaryNeedsKeys(t *testing.T) {
	descs := []*TableDescription{
		{TableName: "t", Columns: []string{"a"}},
	}
	_, err := Build(descs, BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no keys")
}

func TestBuild_DuplicateTable(t *testing.T) {
	descs := measurementDescs()
	descs[2].TableName = "names"
	_, err := Build(descs, BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "described twice")
}

func TestBuild_InvalidDescription(t *testing.T) {
	descs := []*TableDescription{
		{TableName: "t", Columns: []string{"a", "a"}, Keys: map[string]string{"k": "a"}},
	}
	_, err := Build(descs, BuildOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestBuild_SingleTable(t *testing.T) {
	result, err := Build(measurementDescs()[:1], BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, result.Plan.Rows, 3)
	assert.Empty(t, result.Demotions)
}

func TestTableDescription_Validate(t *testing.T) {
	d := &TableDescription{TableName: "t", Columns: []string{"a", "b"}, Keys: map[string]string{"k": "missing"}}
	err := d.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column")

	d = &TableDescription{Columns: []string{"a"}}
	require.Error(t, d.Validate())

	d = &TableDescription{TableName: "t"}
	require.Error(t, d.Validate())

	d = &TableDescription{TableName: "t", Columns: []string{"a"}, Keys: map[string]string{"k": "a"}}
	require.NoError(t, d.Validate())
	assert.True(t, d.IsKeyColumn("a"))
	assert.False(t, d.IsKeyColumn("b"))
}
