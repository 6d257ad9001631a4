package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"

	"github.com/trezcool/ead/core/discipline"
	"github.com/trezcool/ead/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateDiscipline(t *testing.T, repo discipline.Repository, code, name, coordinatorEmail string, isPublished bool) discipline.Discipline {
	now := time.Now().UTC()
	d, err := repo.CreateDiscipline(context.Background(), discipline.Discipline{
		Code:             code,
		Name:             name,
		Workload:         60,
		CoordinatorName:  "Coord " + code,
		CoordinatorEmail: coordinatorEmail,
		CreatedAt:        now,
		UpdatedAt:        now,
	})
	if err != nil {
		t.Fatalf("CreateDiscipline() failed: %v", err)
	}
	if isPublished {
		if d, err = repo.SetPublished(context.Background(), d.ID, true, now); err != nil {
			t.Fatalf("CreateDiscipline() failed: %v", err)
		}
	}
	return d
}

// Content describes the content to attach to a discipline.
type Content struct {
	Videos             []string // urls
	Ebook              bool
	InteractiveEbook   bool
	SimuladoQuestions  int
	FinalExamQuestions int
}

// CompleteContent satisfies every completeness requirement.
var CompleteContent = Content{
	Videos:             []string{"https://youtu.be/dQw4w9WgXcQ"},
	Ebook:              true,
	SimuladoQuestions:  discipline.MinSimuladoQuestions,
	FinalExamQuestions: discipline.AvaliacaoFinalQuestions,
}

// AddContent writes content straight through the repository, bypassing the service rules.
func AddContent(t *testing.T, repo discipline.Repository, disciplineID string, content Content) {
	ctx := context.Background()
	now := time.Now().UTC()

	for i, u := range content.Videos {
		if _, err := repo.AddVideo(ctx, discipline.Video{
			DisciplineID: disciplineID,
			Title:        "Aula " + string(rune('A'+i)),
			URL:          u,
			CreatedAt:    now,
		}); err != nil {
			t.Fatalf("AddContent() failed: %v", err)
		}
	}

	kinds := lo.Compact([]string{
		lo.Ternary(content.Ebook, discipline.EbookStandard, ""),
		lo.Ternary(content.InteractiveEbook, discipline.EbookInteractive, ""),
	})
	for _, kind := range kinds {
		if _, err := repo.SaveEbook(ctx, discipline.Ebook{
			DisciplineID: disciplineID,
			Kind:         kind,
			Title:        "E-book " + kind,
			URL:          "https://example.com/" + kind + ".pdf",
			UpdatedAt:    now,
		}); err != nil {
			t.Fatalf("AddContent() failed: %v", err)
		}
	}

	addQuestions := func(assessment string, n int) {
		for i := 0; i < n; i++ {
			if _, err := repo.AddQuestion(ctx, discipline.Question{
				DisciplineID:  disciplineID,
				Assessment:    assessment,
				Statement:     "Question?",
				Options:       []string{"a", "b", "c"},
				CorrectOption: i % 3,
				CreatedAt:     now,
			}, 0); err != nil {
				t.Fatalf("AddContent() failed: %v", err)
			}
		}
	}
	addQuestions(discipline.AssessmentSimulado, content.SimuladoQuestions)
	addQuestions(discipline.AssessmentAvaliacaoFinal, content.FinalExamQuestions)
}
