// Package dummydb is an in-memory storage for tests & local development.
package dummydb

import (
	"sync"

	"github.com/trezcool/ead/core/discipline"
	"github.com/trezcool/ead/core/user"
)

type (
	DB struct {
		user       *userTable
		discipline *disciplineTables
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	// disciplineTables share one lock: snapshots must count across all content tables at once.
	disciplineTables struct {
		sync.RWMutex
		disciplines map[string]*discipline.Discipline
		videos      map[string]*discipline.Video
		ebooks      map[ebookKey]*discipline.Ebook
		questions   map[string]*discipline.Question
	}

	ebookKey struct {
		disciplineID string
		kind         string
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		discipline: &disciplineTables{
			disciplines: make(map[string]*discipline.Discipline),
			videos:      make(map[string]*discipline.Video),
			ebooks:      make(map[ebookKey]*discipline.Ebook),
			questions:   make(map[string]*discipline.Question),
		},
	}
}

// Reset drops all data.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.discipline.Lock()
	db.discipline.disciplines = make(map[string]*discipline.Discipline)
	db.discipline.videos = make(map[string]*discipline.Video)
	db.discipline.ebooks = make(map[ebookKey]*discipline.Ebook)
	db.discipline.questions = make(map[string]*discipline.Question)
	db.discipline.Unlock()
}
