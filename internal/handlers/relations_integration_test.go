package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studyhall-app/studyhall/internal/handlers/testutil"
	"github.com/studyhall-app/studyhall/internal/models"
)

func TestRelationHandler_ListAndGet(t *testing.T) {
	env := testutil.NewEnv(t)

	student, studentToken := env.CreateUser("student")
	teacher, teacherToken := env.CreateUser("teacher")
	relationID := env.ConnectUsers(studentToken, teacherToken, models.InviteStudentToTeacher)

	list := env.Request(http.MethodGet, "/api/relations", nil, studentToken)
	require.Equal(t, http.StatusOK, list.Code)

	var listing struct {
		AsTeacher []models.Relation `json:"as_teacher"`
		AsStudent []models.Relation `json:"as_student"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &listing)
	require.Empty(t, listing.AsTeacher)
	require.Len(t, listing.AsStudent, 1)
	require.Equal(t, teacher.ID, listing.AsStudent[0].TeacherID)

	get := env.Request(http.MethodGet, "/api/relations/"+relationID, nil, teacherToken)
	require.Equal(t, http.StatusOK, get.Code)

	var getPayload struct {
		Relation models.Relation `json:"relation"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, get).Data, &getPayload)
	require.Equal(t, student.ID, getPayload.Relation.StudentID)

	_, outsiderToken := env.CreateUser("outsider")
	hidden := env.Request(http.MethodGet, "/api/relations/"+relationID, nil, outsiderToken)
	require.Equal(t, http.StatusNotFound, hidden.Code)
}

func TestRelationHandler_PatchAllowList(t *testing.T) {
	env := testutil.NewEnv(t)

	_, studentToken := env.CreateUser("student")
	_, teacherToken := env.CreateUser("teacher")
	relationID := env.ConnectUsers(studentToken, teacherToken, models.InviteStudentToTeacher)

	patch := env.Request(http.MethodPatch, "/api/relations/"+relationID, map[string]any{
		"teacher_name":  "Mr. Chips",
		"student_notes": "quadratics next week",
	}, studentToken)
	require.Equal(t, http.StatusOK, patch.Code, patch.Body.String())

	var patched struct {
		Relation models.Relation `json:"relation"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, patch).Data, &patched)
	require.NotNil(t, patched.Relation.TeacherName)
	require.Equal(t, "Mr. Chips", *patched.Relation.TeacherName)

	// Fields outside the allow-list fail the request outright.
	rejected := env.Request(http.MethodPatch, "/api/relations/"+relationID, map[string]any{
		"teacher_name": "Sneaky",
		"status":       "BLOCKED",
	}, studentToken)
	require.Equal(t, http.StatusBadRequest, rejected.Code)

	// The rejected patch changed nothing.
	get := env.Request(http.MethodGet, "/api/relations/"+relationID, nil, studentToken)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, get).Data, &patched)
	require.Equal(t, models.RelationActive, patched.Relation.Status)
	require.Equal(t, "Mr. Chips", *patched.Relation.TeacherName)
}

func TestRelationHandler_DeleteAndReinvite(t *testing.T) {
	env := testutil.NewEnv(t)

	_, studentToken := env.CreateUser("student")
	_, teacherToken := env.CreateUser("teacher")
	relationID := env.ConnectUsers(studentToken, teacherToken, models.InviteStudentToTeacher)

	deleted := env.Request(http.MethodDelete, "/api/relations/"+relationID, nil, teacherToken)
	require.Equal(t, http.StatusOK, deleted.Code)

	var deletedPayload struct {
		Relation models.Relation `json:"relation"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, deleted).Data, &deletedPayload)
	require.Equal(t, models.RelationBlocked, deletedPayload.Relation.Status)

	// Blocked relations disappear from listings and lookups.
	get := env.Request(http.MethodGet, "/api/relations/"+relationID, nil, studentToken)
	require.Equal(t, http.StatusNotFound, get.Code)

	// A new invite between the same pair revives the same relation.
	revivedID := env.ConnectUsers(teacherToken, studentToken, models.InviteTeacherToStudent)
	require.Equal(t, relationID, revivedID)

	get = env.Request(http.MethodGet, "/api/relations/"+relationID, nil, studentToken)
	require.Equal(t, http.StatusOK, get.Code)
}
