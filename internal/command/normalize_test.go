package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeelaMadhavaRao/Attendace-system-sub000/internal/models"
)

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"06-12-2025": "2025-12-06",
		"06/12/2025": "2025-12-06",
		"2025-12-06": "2025-12-06",
	}
	for raw, want := range cases {
		got, err := NormalizeDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := NormalizeDate("12 Dec")
	require.Error(t, err)
}

func TestNormalizeTime(t *testing.T) {
	cases := map[string]string{
		"9.00am":   "09:00",
		"9:00 AM":  "09:00",
		"09:00":    "09:00",
		"12.00pm":  "12:00",
		"12.00am":  "00:00",
		"4:30 pm":  "16:30",
		"16:45":    "16:45",
	}
	for raw, want := range cases {
		got, err := NormalizeTime(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := NormalizeTime("half past nine")
	require.Error(t, err)
}

func TestExpandRollsCarriesPrefix(t *testing.T) {
	got := ExpandRolls([]string{"23B91A0738", "27"})
	assert.Equal(t, []string{"23B91A0738", "23B91A0727"}, got)
}

func TestExpandRollsNewFullTokenResetsPrefix(t *testing.T) {
	got := ExpandRolls([]string{"23B91A0738", "27", "24B91A0714"})
	assert.Equal(t, []string{"23B91A0738", "23B91A0727", "24B91A0714"}, got)
}

func TestExpandRollsTokenWiderThanDigitRun(t *testing.T) {
	// the carried register ends in a single digit; a two-digit token must
	// replace only that run, never eat into the alphabetic prefix
	got := ExpandRolls([]string{"CSE1", "27"})
	assert.Equal(t, []string{"CSE1", "CSE27"}, got)
}

func TestExpandRollsBareNumbersWithoutPrefix(t *testing.T) {
	got := ExpandRolls([]string{"1", "2", "14"})
	assert.Equal(t, []string{"1", "2", "14"}, got)
}

func TestExpandRollsDropsFillerTokens(t *testing.T) {
	assert.Empty(t, ExpandRolls([]string{"none"}))
	assert.Empty(t, ExpandRolls([]string{"all", "present"}))
	assert.Empty(t, ExpandRolls(nil))
}

func TestAttendanceCommandNormalization(t *testing.T) {
	n := NewNormalizer()
	cmd, err := n.Attendance(map[string]interface{}{
		"className":   "3/4 CSIT",
		"date":        "06-12-2025",
		"startTime":   "9.00am",
		"endTime":     "10.00 AM",
		"subject":     "DBMS",
		"type":        "absentees",
		"rollNumbers": []interface{}{"23B91A0738", float64(27)},
	})
	require.NoError(t, err)
	assert.Equal(t, "3/4 CSIT", cmd.ClassName)
	assert.Equal(t, "2025-12-06", cmd.Date)
	assert.Equal(t, "09:00", cmd.StartTime)
	assert.Equal(t, "10:00", cmd.EndTime)
	assert.Equal(t, "DBMS", cmd.Subject)
	assert.Equal(t, models.ListTypeAbsentees, cmd.Type)
	assert.Equal(t, []string{"23B91A0738", "23B91A0727"}, cmd.RollNumbers)
}

func TestAttendanceCommandDefaultsToAbsentees(t *testing.T) {
	n := NewNormalizer()
	cmd, err := n.Attendance(map[string]interface{}{
		"className": "3/4 CSIT",
		"date":      "2025-12-06",
		"startTime": "09:00",
		"endTime":   "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ListTypeAbsentees, cmd.Type)
	assert.Empty(t, cmd.RollNumbers)
}

func TestAttendanceCommandRequiresClassName(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Attendance(map[string]interface{}{"date": "2025-12-06"})
	require.Error(t, err)
}

func TestFetchThresholdRequiresPhraseInUtterance(t *testing.T) {
	n := NewNormalizer()

	// percentage present in data but the current message has no threshold
	// qualifier: a stale value from conversation context must not leak in.
	cmd, err := n.Fetch(map[string]interface{}{
		"className":  "3/4 CSIT",
		"percentage": float64(75),
	}, "show attendance for 3/4 CSIT")
	require.NoError(t, err)
	assert.Nil(t, cmd.Percentage)

	cmd, err = n.Fetch(map[string]interface{}{
		"className":  "3/4 CSIT",
		"percentage": float64(75),
	}, "show students below 75% in 3/4 CSIT")
	require.NoError(t, err)
	require.NotNil(t, cmd.Percentage)
	assert.Equal(t, 75, *cmd.Percentage)
}

func TestFetchThresholdParsedFromUtteranceWhenDataMissing(t *testing.T) {
	n := NewNormalizer()
	cmd, err := n.Fetch(map[string]interface{}{
		"className": "3/4 CSIT",
	}, "get attendance less than 60 percent")
	require.NoError(t, err)
	require.NotNil(t, cmd.Percentage)
	assert.Equal(t, 60, *cmd.Percentage)
}

func TestParentMessageNormalization(t *testing.T) {
	n := NewNormalizer()
	cmd, err := n.ParentMessage(map[string]interface{}{
		"className": "3/4 CSIT",
		"message":   "Dear parent, please take note.",
	}, "message parents of students below 50%")
	require.NoError(t, err)
	assert.Equal(t, "Dear parent, please take note.", cmd.Template)
	require.NotNil(t, cmd.Percentage)
	assert.Equal(t, 50, *cmd.Percentage)
}

func TestAddStudentRequiredFields(t *testing.T) {
	n := NewNormalizer()
	_, err := n.AddStudent(map[string]interface{}{"className": "3/4 CSIT"})
	require.Error(t, err)

	cmd, err := n.AddStudent(map[string]interface{}{
		"className":      "3/4 CSIT",
		"registerNumber": "23B91A0745",
		"name":           "Anil Kumar",
		"parentPhone":    "+919876543210",
	})
	require.NoError(t, err)
	assert.Equal(t, "23B91A0745", cmd.RegisterNo)
	assert.Equal(t, "+919876543210", cmd.ParentPhone)
}

func TestRollKeyExtraction(t *testing.T) {
	assert.Equal(t, "738", models.RollKey("23B91A0738"))
	assert.Equal(t, "7", models.RollKey("07"))
	assert.Equal(t, "0", models.RollKey("A00"))
	assert.Equal(t, "", models.RollKey("ABC"))
}
