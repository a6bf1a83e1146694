package accounts

import (
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// AccountFilter is the closed set of named account scopes. Filters map to
// query predicates through a single resolver function rather than
// late-bound string dispatch.
type AccountFilter int

const (
	// FilterActive selects accounts in the active lifecycle state
	FilterActive AccountFilter = iota
	// FilterAdmins selects accounts with the admin flag
	FilterAdmins
	// FilterBlocked selects accounts in the blocked lifecycle state
	FilterBlocked
	// FilterWithoutProjects selects accounts with no personal projects
	FilterWithoutProjects
)

// IsValid checks if the filter is one of the predefined variants
func (f AccountFilter) IsValid() bool {
	switch f {
	case FilterActive, FilterAdmins, FilterBlocked, FilterWithoutProjects:
		return true
	default:
		return false
	}
}

// Criteria resolves the filter variant to its query predicate.
func (f AccountFilter) Criteria() repository.SelectCriteria {
	switch f {
	case FilterAdmins:
		return func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.is_admin = ?", true)
		}
	case FilterBlocked:
		return func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.status = ?", AccountStatusBlocked)
		}
	case FilterWithoutProjects:
		return func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where(`NOT EXISTS (
				SELECT 1 FROM namespaces AS ns
				JOIN projects AS prj ON prj.namespace_id = ns.id
				WHERE ns.owner_id = ?TableAlias.id AND ns.kind = ?
			)`, NamespacePersonal)
		}
	default:
		return func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.status = ?", AccountStatusActive)
		}
	}
}
