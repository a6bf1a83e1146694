package accounts

import (
	"context"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// ResolverStore is the read surface the resolver computes from. All
// methods are snapshot reads; the resolver takes no locks.
type ResolverStore interface {
	PersonalNamespace(ctx context.Context, accountID uuid.UUID) (*Namespace, error)
	ProjectsInNamespace(ctx context.Context, namespaceID uuid.UUID) ([]*Project, error)
	MembershipsBySource(ctx context.Context, accountID uuid.UUID, source MembershipSource) ([]*Membership, error)
	GroupNamespace(ctx context.Context, groupID uuid.UUID) (*Namespace, error)
	ProjectByID(ctx context.Context, projectID uuid.UUID) (*Project, error)
	NamespaceByID(ctx context.Context, namespaceID uuid.UUID) (*Namespace, error)
}

// ResolverCache memoizes resolved sets for the lifetime the caller gives
// it, typically one request. Passing nil disables caching. The cache
// must be dropped (or Invalidate called) after any membership, namespace,
// or project mutation affecting the account; staleness beyond one logical
// operation is a correctness bug. Cached sets are handed out by copy, so
// callers may reorder or trim a result without corrupting later reads.
type ResolverCache struct {
	authorizedProjects map[uuid.UUID][]uuid.UUID
	authorizedGroups   map[uuid.UUID][]uuid.UUID
	ownedProjects      map[uuid.UUID][]uuid.UUID
	manageable         map[uuid.UUID][]uuid.UUID
}

// NewResolverCache builds an empty request-scoped cache.
func NewResolverCache() *ResolverCache {
	return &ResolverCache{
		authorizedProjects: map[uuid.UUID][]uuid.UUID{},
		authorizedGroups:   map[uuid.UUID][]uuid.UUID{},
		ownedProjects:      map[uuid.UUID][]uuid.UUID{},
		manageable:         map[uuid.UUID][]uuid.UUID{},
	}
}

// Invalidate drops every memoized set for the account.
func (c *ResolverCache) Invalidate(accountID uuid.UUID) {
	if c == nil {
		return
	}
	delete(c.authorizedProjects, accountID)
	delete(c.authorizedGroups, accountID)
	delete(c.ownedProjects, accountID)
	delete(c.manageable, accountID)
}

// Resolver computes the sets of groups, projects, and namespaces an
// account may access. Resolution is a pure read; it has no "denied"
// outcome, only sets, possibly empty. Lifecycle state is NOT consulted
// here; callers outside the core decide how to treat blocked accounts.
type Resolver struct {
	store  ResolverStore
	logger Logger
}

// ResolverOption customizes resolver construction.
type ResolverOption func(*Resolver)

// WithResolverLogger overrides the resolver logger.
func WithResolverLogger(logger Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver builds a resolver over the given store.
func NewResolver(store ResolverStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// AuthorizedProjects is the deduplicated union of exactly three access
// paths: projects under the personal namespace, projects under every
// group the account belongs to at any level, and projects the account
// holds a direct membership on. No path takes precedence over another.
func (r *Resolver) AuthorizedProjects(ctx context.Context, accountID uuid.UUID, cache *ResolverCache) ([]uuid.UUID, error) {
	if cache != nil {
		if ids, ok := cache.authorizedProjects[accountID]; ok {
			return cloneIDs(ids), nil
		}
	}

	set := map[uuid.UUID]struct{}{}

	// (a) projects under the personal namespace
	if err := r.collectPersonalProjects(ctx, accountID, set); err != nil {
		return nil, err
	}

	// (b) projects under every group membership, regardless of level
	groupMemberships, err := r.memberships(ctx, accountID, MembershipGroup)
	if err != nil {
		return nil, err
	}
	for _, m := range groupMemberships {
		if err := r.collectGroupProjects(ctx, m.SourceID, set); err != nil {
			return nil, err
		}
	}

	// (c) direct project memberships, independent of namespace
	projectMemberships, err := r.memberships(ctx, accountID, MembershipProject)
	if err != nil {
		return nil, err
	}
	for _, m := range projectMemberships {
		set[m.SourceID] = struct{}{}
	}

	ids := sortedSet(set)
	if cache != nil {
		cache.authorizedProjects[accountID] = ids
		ids = cloneIDs(ids)
	}
	return ids, nil
}

// AuthorizedGroups unions the account's direct group memberships with the
// groups owning projects the account holds a direct membership on. The
// second path grants group visibility without any group-level membership
// record; that asymmetry is deliberate and observable.
func (r *Resolver) AuthorizedGroups(ctx context.Context, accountID uuid.UUID, cache *ResolverCache) ([]uuid.UUID, error) {
	if cache != nil {
		if ids, ok := cache.authorizedGroups[accountID]; ok {
			return cloneIDs(ids), nil
		}
	}

	set := map[uuid.UUID]struct{}{}

	groupMemberships, err := r.memberships(ctx, accountID, MembershipGroup)
	if err != nil {
		return nil, err
	}
	for _, m := range groupMemberships {
		set[m.SourceID] = struct{}{}
	}

	projectMemberships, err := r.memberships(ctx, accountID, MembershipProject)
	if err != nil {
		return nil, err
	}
	for _, m := range projectMemberships {
		project, err := r.store.ProjectByID(ctx, m.SourceID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "project lookup failed")
		}

		ns, err := r.store.NamespaceByID(ctx, project.NamespaceID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "namespace lookup failed")
		}

		if ns.IsGroup() && ns.GroupID != nil {
			set[*ns.GroupID] = struct{}{}
		}
	}

	ids := sortedSet(set)
	if cache != nil {
		cache.authorizedGroups[accountID] = ids
		ids = cloneIDs(ids)
	}
	return ids, nil
}

// OwnedProjects returns the projects under the personal namespace plus
// the projects of every group the account holds at Owner level.
func (r *Resolver) OwnedProjects(ctx context.Context, accountID uuid.UUID, cache *ResolverCache) ([]uuid.UUID, error) {
	if cache != nil {
		if ids, ok := cache.ownedProjects[accountID]; ok {
			return cloneIDs(ids), nil
		}
	}

	set := map[uuid.UUID]struct{}{}

	if err := r.collectPersonalProjects(ctx, accountID, set); err != nil {
		return nil, err
	}

	groupMemberships, err := r.memberships(ctx, accountID, MembershipGroup)
	if err != nil {
		return nil, err
	}
	for _, m := range groupMemberships {
		if m.AccessLevel != AccessOwner {
			continue
		}
		if err := r.collectGroupProjects(ctx, m.SourceID, set); err != nil {
			return nil, err
		}
	}

	ids := sortedSet(set)
	if cache != nil {
		cache.ownedProjects[accountID] = ids
		ids = cloneIDs(ids)
	}
	return ids, nil
}

// ManageableNamespaces returns the personal namespace plus the namespaces
// of groups held at Master level or above.
func (r *Resolver) ManageableNamespaces(ctx context.Context, accountID uuid.UUID, cache *ResolverCache) ([]uuid.UUID, error) {
	if cache != nil {
		if ids, ok := cache.manageable[accountID]; ok {
			return cloneIDs(ids), nil
		}
	}

	set := map[uuid.UUID]struct{}{}

	personal, err := r.personalNamespace(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if personal != nil {
		set[personal.ID] = struct{}{}
	}

	groupMemberships, err := r.memberships(ctx, accountID, MembershipGroup)
	if err != nil {
		return nil, err
	}
	for _, m := range groupMemberships {
		if !m.AccessLevel.AtLeast(AccessMaster) {
			continue
		}

		ns, err := r.store.GroupNamespace(ctx, m.SourceID)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "group namespace lookup failed")
		}
		set[ns.ID] = struct{}{}
	}

	ids := sortedSet(set)
	if cache != nil {
		cache.manageable[accountID] = ids
		ids = cloneIDs(ids)
	}
	return ids, nil
}

func (r *Resolver) personalNamespace(ctx context.Context, accountID uuid.UUID) (*Namespace, error) {
	ns, err := r.store.PersonalNamespace(ctx, accountID)
	if err != nil {
		// namespaces are created lazily; a missing one means an empty
		// personal set, not a failure
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "personal namespace lookup failed")
	}
	return ns, nil
}

func (r *Resolver) collectPersonalProjects(ctx context.Context, accountID uuid.UUID, set map[uuid.UUID]struct{}) error {
	ns, err := r.personalNamespace(ctx, accountID)
	if err != nil {
		return err
	}
	if ns == nil {
		return nil
	}
	return r.collectNamespaceProjects(ctx, ns.ID, set)
}

func (r *Resolver) collectGroupProjects(ctx context.Context, groupID uuid.UUID, set map[uuid.UUID]struct{}) error {
	ns, err := r.store.GroupNamespace(ctx, groupID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "group namespace lookup failed")
	}
	return r.collectNamespaceProjects(ctx, ns.ID, set)
}

func (r *Resolver) collectNamespaceProjects(ctx context.Context, namespaceID uuid.UUID, set map[uuid.UUID]struct{}) error {
	projects, err := r.store.ProjectsInNamespace(ctx, namespaceID)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "namespace project listing failed")
	}

	for _, p := range projects {
		set[p.ID] = struct{}{}
	}
	return nil
}

func (r *Resolver) memberships(ctx context.Context, accountID uuid.UUID, source MembershipSource) ([]*Membership, error) {
	records, err := r.store.MembershipsBySource(ctx, accountID, source)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "membership listing failed")
	}
	return records, nil
}

func cloneIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, len(ids))
	copy(out, ids)
	return out
}

func sortedSet(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})

	return ids
}
