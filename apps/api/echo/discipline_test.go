package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ead/core/discipline"
	"github.com/trezcool/ead/core/media"
	"github.com/trezcool/ead/core/user"
	testutil "github.com/trezcool/ead/tests"
)

func Test_disciplineApi_query(t *testing.T) {
	db.Reset()

	student := testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	bio := testutil.CreateDiscipline(t, dscRepo, "BIO-101", "Biologia", "", true)
	mat := testutil.CreateDiscipline(t, dscRepo, "MAT-101", "Matemática", "", false)
	his := testutil.CreateDiscipline(t, dscRepo, "HIS-101", "História", "", true)

	studentToken := getToken(t, student)
	adminToken := getToken(t, admin)
	notFound := marchallObj(t, httpErr{Error: "not found"})

	runHttpTests(t, []httpTest{
		{name: "auth required", path: "/v1/disciplines", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin sees all", path: "/v1/disciplines", token: adminToken, wantData: marchallList(t, bio, his, mat)},
		{name: "admin filters drafts", path: "/v1/disciplines?is_published=false", token: adminToken, wantData: marchallList(t, mat)},
		{name: "student sees published", path: "/v1/disciplines", token: studentToken, wantData: marchallList(t, bio, his)},
		{
			name: "student cannot ask for drafts", path: "/v1/disciplines?is_published=false", token: studentToken,
			wantData: marchallList(t, bio, his),
		},
		{name: "search & ordering", path: "/v1/disciplines?search=101&ordering=-name", token: adminToken, wantData: marchallList(t, mat, his, bio)},
		{name: "retrieve (published)", path: "/v1/disciplines/" + bio.ID, token: studentToken, wantData: marchallObj(t, bio)},
		{name: "retrieve (draft, admin)", path: "/v1/disciplines/" + mat.ID, token: adminToken, wantData: marchallObj(t, mat)},
		{
			name: "retrieve (draft, student)", path: "/v1/disciplines/" + mat.ID, token: studentToken,
			wantCode: http.StatusNotFound, wantData: notFound,
		},
		{name: "retrieve (unknown)", path: "/v1/disciplines/lol", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
	})
}

func Test_disciplineApi_create(t *testing.T) {
	db.Reset()

	student := testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	testutil.CreateDiscipline(t, dscRepo, "BIO-101", "Biologia", "", true)
	adminToken := getToken(t, admin)

	body := func(code, name string) []byte {
		return marchallObj(t, discipline.NewDiscipline{Code: code, Name: name, Workload: 60})
	}

	runHttpTests(t, []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/v1/disciplines", token: getToken(t, student),
			body: body("MAT-101", "Matemática"), wantCode: http.StatusForbidden,
		},
		{
			name: "invalid code", method: http.MethodPost, path: "/v1/disciplines", token: adminToken,
			body: body("mat 101", "Matemática"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": "only letters, digits, dots and hyphens are allowed"}),
		},
		{
			name: "duplicate code", method: http.MethodPost, path: "/v1/disciplines", token: adminToken,
			body: body("bio-101", "Biologia II"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"code": discipline.ErrCodeExists.Error()}),
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/disciplines", adminToken, body(" mat-101 ", "  Matemática  "))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var d discipline.Discipline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "MAT-101", d.Code)
	assert.Equal(t, "Matemática", d.Name)
	assert.False(t, d.IsPublished, "new disciplines are drafts")
}

func Test_disciplineApi_completenessAndPublish(t *testing.T) {
	db.Reset()
	ctx := context.Background()

	student := testutil.CreateUser(t, usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	draft := testutil.CreateDiscipline(t, dscRepo, "MAT-101", "Matemática", "", false)
	ready := testutil.CreateDiscipline(t, dscRepo, "BIO-101", "Biologia", "", false)
	testutil.AddContent(t, dscRepo, draft.ID, testutil.Content{Videos: []string{"https://youtu.be/dQw4w9WgXcQ"}, Ebook: true})
	testutil.AddContent(t, dscRepo, ready.ID, testutil.CompleteContent)
	adminToken := getToken(t, admin)

	reportOf := func(id string) discipline.Report {
		snap, err := dscRepo.GetContentSnapshot(ctx, id)
		require.NoError(t, err)
		report, err := discipline.Evaluate(snap)
		require.NoError(t, err)
		return report
	}
	draftReport := reportOf(draft.ID)
	require.False(t, draftReport.IsComplete)

	missing := make(map[string]string)
	for _, req := range draftReport.Requirements {
		if !req.Satisfied {
			missing[req.Key] = "requirement not satisfied"
		}
	}

	runHttpTests(t, []httpTest{
		{
			name: "completeness (partial)", path: "/v1/disciplines/" + draft.ID + "/completeness", token: adminToken,
			wantData: marchallObj(t, draftReport.Response()),
		},
		{
			name: "completeness (full)", path: "/v1/disciplines/" + ready.ID + "/completeness", token: adminToken,
			wantData: marchallObj(t, reportOf(ready.ID).Response()),
		},
		{
			name: "publish (admin required)", method: http.MethodPost, path: "/v1/disciplines/" + ready.ID + "/publish",
			token: getToken(t, student), wantCode: http.StatusNotFound, // drafts are hidden from students
		},
		{
			name: "publish (incomplete)", method: http.MethodPost, path: "/v1/disciplines/" + draft.ID + "/publish",
			token: adminToken, wantCode: http.StatusBadRequest, wantData: marchallObj(t, missing),
		},
	})

	t.Run("publish & unpublish", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/disciplines/"+ready.ID+"/publish", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var d discipline.Discipline
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
		assert.True(t, d.IsPublished)

		// now visible to students
		req, rec = newAuthRequest(http.MethodGet, "/v1/disciplines/"+ready.ID, getToken(t, student))
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		req, rec = newAuthRequest(http.MethodPost, "/v1/disciplines/"+ready.ID+"/unpublish", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
		assert.False(t, d.IsPublished)
	})
}

func Test_disciplineApi_content(t *testing.T) {
	db.Reset()

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	d := testutil.CreateDiscipline(t, dscRepo, "MAT-101", "Matemática", "", false)
	testutil.AddContent(t, dscRepo, d.ID, testutil.Content{FinalExamQuestions: discipline.AvaliacaoFinalQuestions})
	adminToken := getToken(t, admin)
	base := "/v1/disciplines/" + d.ID

	question := marchallObj(t, map[string]interface{}{
		"statement":      "2 + 2?",
		"options":        []string{"3", "4"},
		"correct_option": 1,
	})

	runHttpTests(t, []httpTest{
		{
			name: "video without url", method: http.MethodPost, path: base + "/videos", token: adminToken,
			body:     marchallObj(t, discipline.NewVideo{Title: "Aula 1", URL: "   "}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"url": "no content"}),
		},
		{
			name: "video with unknown source hint", method: http.MethodPost, path: base + "/videos", token: adminToken,
			body:     marchallObj(t, discipline.NewVideo{Title: "Aula 1", URL: "https://youtu.be/dQw4w9WgXcQ", DeclaredSource: "tiktok"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"declared_source": "unknown media source"}),
		},
		{
			name: "final assessment is full", method: http.MethodPost, path: base + "/questions/" + discipline.AssessmentAvaliacaoFinal,
			token: adminToken, body: question, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"assessment": "the final assessment must have exactly 10 questions"}),
		},
		{
			name: "unknown video", method: http.MethodDelete, path: base + "/videos/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{name: "no ebooks yet", path: base + "/ebooks", token: adminToken, wantData: marchallList(t)},
	})

	t.Run("add & list videos", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/videos", adminToken,
			marchallObj(t, discipline.NewVideo{Title: "Aula 1", URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var v discipline.PlayableVideo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
		assert.Equal(t, media.ProviderYouTube, v.Playback.Provider)
		assert.Equal(t, "dQw4w9WgXcQ", v.Playback.NativeID)

		req, rec = newAuthRequest(http.MethodGet, base+"/videos", adminToken)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var videos []discipline.PlayableVideo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &videos))
		require.Len(t, videos, 1)
		assert.Equal(t, v.ID, videos[0].ID)
	})

	t.Run("simulado question", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, base+"/questions/"+discipline.AssessmentSimulado, adminToken, question)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var q discipline.Question
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
		assert.Equal(t, discipline.AssessmentSimulado, q.Assessment)
		assert.Equal(t, 1, q.CorrectOption)
	})

	t.Run("delete question through its own assessment only", func(t *testing.T) {
		finals, err := dscRepo.QueryQuestions(context.Background(), d.ID, discipline.AssessmentAvaliacaoFinal)
		require.NoError(t, err)
		require.NotEmpty(t, finals)
		path := func(assessment string) string { return base + "/questions/" + assessment + "/" + finals[0].ID }

		runHttpTests(t, []httpTest{
			{
				name: "wrong assessment", method: http.MethodDelete, path: path(discipline.AssessmentSimulado), token: adminToken,
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
			},
			{
				name: "unknown assessment", method: http.MethodDelete, path: path("prova"), token: adminToken,
				wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
			},
			{name: "own assessment", method: http.MethodDelete, path: path(discipline.AssessmentAvaliacaoFinal), token: adminToken, wantCode: http.StatusNoContent},
		})

		left, err := dscRepo.QueryQuestions(context.Background(), d.ID, discipline.AssessmentAvaliacaoFinal)
		require.NoError(t, err)
		assert.Len(t, left, discipline.AvaliacaoFinalQuestions-1)
	})
}
