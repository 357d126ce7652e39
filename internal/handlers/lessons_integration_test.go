package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/studyhall-app/studyhall/internal/handlers/testutil"
	"github.com/studyhall-app/studyhall/internal/models"
)

func TestLessonHandler_ScheduleAndManage(t *testing.T) {
	env := testutil.NewEnv(t)

	_, studentToken := env.CreateUser("student")
	_, teacherToken := env.CreateUser("teacher")
	relationID := env.ConnectUsers(studentToken, teacherToken, models.InviteStudentToTeacher)

	startsAt := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	created := env.Request(http.MethodPost, "/api/lessons", map[string]any{
		"relation_id": relationID,
		"title":       "Algebra basics",
		"starts_at":   startsAt,
		"notes":       "bring the workbook",
	}, teacherToken)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	var lessonPayload struct {
		Lesson models.Lesson `json:"lesson"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, created).Data, &lessonPayload)
	lessonID := lessonPayload.Lesson.ID
	require.Equal(t, models.LessonScheduled, lessonPayload.Lesson.Status)
	require.Equal(t, 60, lessonPayload.Lesson.DurationMinutes)

	list := env.Request(http.MethodGet, "/api/relations/"+relationID+"/lessons", nil, studentToken)
	require.Equal(t, http.StatusOK, list.Code)

	upcoming := env.Request(http.MethodGet, "/api/lessons/upcoming", nil, studentToken)
	require.Equal(t, http.StatusOK, upcoming.Code)

	var upcomingPayload struct {
		Lessons []models.Lesson `json:"lessons"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, upcoming).Data, &upcomingPayload)
	require.Len(t, upcomingPayload.Lessons, 1)

	patch := env.Request(http.MethodPatch, "/api/lessons/"+lessonID, map[string]any{
		"title":            "Algebra I",
		"duration_minutes": 90,
	}, studentToken)
	require.Equal(t, http.StatusOK, patch.Code, patch.Body.String())
	testutil.DecodeInto(t, testutil.DecodeResponse(t, patch).Data, &lessonPayload)
	require.Equal(t, "Algebra I", lessonPayload.Lesson.Title)
	require.Equal(t, 90, lessonPayload.Lesson.DurationMinutes)

	// Unknown patch fields are rejected.
	badPatch := env.Request(http.MethodPatch, "/api/lessons/"+lessonID, map[string]any{
		"relation_id": "another-relation",
	}, studentToken)
	require.Equal(t, http.StatusBadRequest, badPatch.Code)

	cancel := env.Request(http.MethodPost, "/api/lessons/"+lessonID+"/cancel", nil, teacherToken)
	require.Equal(t, http.StatusOK, cancel.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, cancel).Data, &lessonPayload)
	require.Equal(t, models.LessonCancelled, lessonPayload.Lesson.Status)

	upcoming = env.Request(http.MethodGet, "/api/lessons/upcoming", nil, studentToken)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, upcoming).Data, &upcomingPayload)
	require.Empty(t, upcomingPayload.Lessons)
}

func TestLessonHandler_OutsiderBlocked(t *testing.T) {
	env := testutil.NewEnv(t)

	_, studentToken := env.CreateUser("student")
	_, teacherToken := env.CreateUser("teacher")
	relationID := env.ConnectUsers(studentToken, teacherToken, models.InviteStudentToTeacher)

	_, outsiderToken := env.CreateUser("outsider")
	resp := env.Request(http.MethodPost, "/api/lessons", map[string]any{
		"relation_id": relationID,
		"title":       "Sneaky lesson",
		"starts_at":   time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
	}, outsiderToken)
	require.Equal(t, http.StatusNotFound, resp.Code)
}
