package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/studyhall-app/studyhall/internal/handlers/testutil"
	"github.com/studyhall-app/studyhall/internal/models"
)

func TestBoardHandler_Lifecycle(t *testing.T) {
	env := testutil.NewEnv(t)

	_, studentToken := env.CreateUser("student")
	_, teacherToken := env.CreateUser("teacher")
	relationID := env.ConnectUsers(studentToken, teacherToken, models.InviteStudentToTeacher)

	created := env.Request(http.MethodPost, "/api/boards", map[string]any{
		"relation_id": relationID,
		"title":       "Fractions",
		"content":     map[string]any{"strokes": []any{}},
	}, teacherToken)
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())

	var boardPayload struct {
		Board models.Board `json:"board"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, created).Data, &boardPayload)
	boardID := boardPayload.Board.ID

	// Either participant can see and edit the shared document.
	get := env.Request(http.MethodGet, "/api/boards/"+boardID, nil, studentToken)
	require.Equal(t, http.StatusOK, get.Code)

	update := env.Request(http.MethodPut, "/api/boards/"+boardID+"/content", map[string]any{
		"content": map[string]any{"strokes": []any{map[string]any{"color": "red"}}},
	}, studentToken)
	require.Equal(t, http.StatusOK, update.Code, update.Body.String())

	testutil.DecodeInto(t, testutil.DecodeResponse(t, update).Data, &boardPayload)
	require.JSONEq(t, `{"strokes":[{"color":"red"}]}`, string(boardPayload.Board.Content))

	rename := env.Request(http.MethodPatch, "/api/boards/"+boardID, map[string]any{
		"title": "Fractions II",
	}, teacherToken)
	require.Equal(t, http.StatusOK, rename.Code)

	list := env.Request(http.MethodGet, "/api/relations/"+relationID+"/boards", nil, studentToken)
	require.Equal(t, http.StatusOK, list.Code)

	var listPayload struct {
		Boards []models.Board `json:"boards"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &listPayload)
	require.Len(t, listPayload.Boards, 1)
	require.Equal(t, "Fractions II", listPayload.Boards[0].Title)

	_, outsiderToken := env.CreateUser("outsider")
	hidden := env.Request(http.MethodGet, "/api/boards/"+boardID, nil, outsiderToken)
	require.Equal(t, http.StatusNotFound, hidden.Code)

	deleted := env.Request(http.MethodDelete, "/api/boards/"+boardID, nil, teacherToken)
	require.Equal(t, http.StatusOK, deleted.Code)

	gone := env.Request(http.MethodGet, "/api/boards/"+boardID, nil, teacherToken)
	require.Equal(t, http.StatusNotFound, gone.Code)
}
