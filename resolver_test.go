package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolverStore struct {
	personal    map[uuid.UUID]*accounts.Namespace
	groupNS     map[uuid.UUID]*accounts.Namespace
	namespaces  map[uuid.UUID]*accounts.Namespace
	nsProjects  map[uuid.UUID][]*accounts.Project
	projects    map[uuid.UUID]*accounts.Project
	memberships map[uuid.UUID]map[accounts.MembershipSource][]*accounts.Membership
}

func newFakeResolverStore() *fakeResolverStore {
	return &fakeResolverStore{
		personal:    map[uuid.UUID]*accounts.Namespace{},
		groupNS:     map[uuid.UUID]*accounts.Namespace{},
		namespaces:  map[uuid.UUID]*accounts.Namespace{},
		nsProjects:  map[uuid.UUID][]*accounts.Project{},
		projects:    map[uuid.UUID]*accounts.Project{},
		memberships: map[uuid.UUID]map[accounts.MembershipSource][]*accounts.Membership{},
	}
}

func (s *fakeResolverStore) addPersonalNamespace(accountID uuid.UUID) *accounts.Namespace {
	owner := accountID
	ns := &accounts.Namespace{
		ID:      uuid.New(),
		Kind:    accounts.NamespacePersonal,
		OwnerID: &owner,
	}
	s.personal[accountID] = ns
	s.namespaces[ns.ID] = ns
	return ns
}

func (s *fakeResolverStore) addGroup() (uuid.UUID, *accounts.Namespace) {
	groupID := uuid.New()
	ns := &accounts.Namespace{
		ID:      uuid.New(),
		Kind:    accounts.NamespaceGroup,
		GroupID: &groupID,
	}
	s.groupNS[groupID] = ns
	s.namespaces[ns.ID] = ns
	return groupID, ns
}

func (s *fakeResolverStore) addProject(ns *accounts.Namespace) *accounts.Project {
	p := &accounts.Project{ID: uuid.New(), NamespaceID: ns.ID}
	s.nsProjects[ns.ID] = append(s.nsProjects[ns.ID], p)
	s.projects[p.ID] = p
	return p
}

func (s *fakeResolverStore) addMembership(accountID uuid.UUID, source accounts.MembershipSource, sourceID uuid.UUID, level accounts.AccessLevel) {
	if s.memberships[accountID] == nil {
		s.memberships[accountID] = map[accounts.MembershipSource][]*accounts.Membership{}
	}
	s.memberships[accountID][source] = append(s.memberships[accountID][source], &accounts.Membership{
		ID:          uuid.New(),
		AccountID:   accountID,
		SourceType:  source,
		SourceID:    sourceID,
		AccessLevel: level,
	})
}

func (s *fakeResolverStore) PersonalNamespace(_ context.Context, accountID uuid.UUID) (*accounts.Namespace, error) {
	if ns, ok := s.personal[accountID]; ok {
		return ns, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *fakeResolverStore) ProjectsInNamespace(_ context.Context, namespaceID uuid.UUID) ([]*accounts.Project, error) {
	return s.nsProjects[namespaceID], nil
}

func (s *fakeResolverStore) MembershipsBySource(_ context.Context, accountID uuid.UUID, source accounts.MembershipSource) ([]*accounts.Membership, error) {
	return s.memberships[accountID][source], nil
}

func (s *fakeResolverStore) GroupNamespace(_ context.Context, groupID uuid.UUID) (*accounts.Namespace, error) {
	if ns, ok := s.groupNS[groupID]; ok {
		return ns, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *fakeResolverStore) ProjectByID(_ context.Context, projectID uuid.UUID) (*accounts.Project, error) {
	if p, ok := s.projects[projectID]; ok {
		return p, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (s *fakeResolverStore) NamespaceByID(_ context.Context, namespaceID uuid.UUID) (*accounts.Namespace, error) {
	if ns, ok := s.namespaces[namespaceID]; ok {
		return ns, nil
	}
	return nil, repository.NewRecordNotFound()
}

func contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func TestAuthorizedProjectsUnionsThreePaths(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	personalNS := store.addPersonalNamespace(bob)
	p0 := store.addProject(personalNS)

	groupID, groupNS := store.addGroup()
	p1 := store.addProject(groupNS)
	store.addMembership(bob, accounts.MembershipGroup, groupID, accounts.AccessReporter)

	_, otherNS := store.addGroup()
	p2 := store.addProject(otherNS)
	store.addMembership(bob, accounts.MembershipProject, p2.ID, accounts.AccessDeveloper)

	resolver := accounts.NewResolver(store)
	ids, err := resolver.AuthorizedProjects(ctx, bob, nil)
	require.NoError(t, err)

	require.Len(t, ids, 3)
	assert.True(t, contains(ids, p0.ID))
	assert.True(t, contains(ids, p1.ID))
	assert.True(t, contains(ids, p2.ID))
}

func TestAuthorizedProjectsDeduplicatesOverlappingPaths(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	groupID, groupNS := store.addGroup()
	p1 := store.addProject(groupNS)

	// same project reachable via the group AND a direct grant
	store.addMembership(bob, accounts.MembershipGroup, groupID, accounts.AccessReporter)
	store.addMembership(bob, accounts.MembershipProject, p1.ID, accounts.AccessMaster)

	resolver := accounts.NewResolver(store)
	ids, err := resolver.AuthorizedProjects(ctx, bob, nil)
	require.NoError(t, err)

	require.Len(t, ids, 1)
	assert.Equal(t, p1.ID, ids[0])
}

func TestAuthorizedProjectsSurviveSinglePathRemoval(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	groupID, groupNS := store.addGroup()
	p1 := store.addProject(groupNS)
	store.addMembership(bob, accounts.MembershipGroup, groupID, accounts.AccessReporter)
	store.addMembership(bob, accounts.MembershipProject, p1.ID, accounts.AccessDeveloper)

	resolver := accounts.NewResolver(store)

	// drop the direct grant; the group path still reaches the project
	store.memberships[bob][accounts.MembershipProject] = nil

	ids, err := resolver.AuthorizedProjects(ctx, bob, nil)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, p1.ID, ids[0])
}

func TestAuthorizedProjectsWithoutPersonalNamespace(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	resolver := accounts.NewResolver(store)
	ids, err := resolver.AuthorizedProjects(ctx, bob, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAuthorizedGroupsIncludesDirectProjectGroups(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	groupID, _ := store.addGroup()
	store.addMembership(bob, accounts.MembershipGroup, groupID, accounts.AccessGuest)

	// a direct project grant in an unrelated group exposes that group,
	// even though bob holds no group-level membership there
	otherGroupID, otherNS := store.addGroup()
	p := store.addProject(otherNS)
	store.addMembership(bob, accounts.MembershipProject, p.ID, accounts.AccessReporter)

	resolver := accounts.NewResolver(store)
	ids, err := resolver.AuthorizedGroups(ctx, bob, nil)
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.True(t, contains(ids, groupID))
	assert.True(t, contains(ids, otherGroupID))
}

func TestAuthorizedGroupsSkipsPersonalProjects(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()
	alice := uuid.New()

	aliceNS := store.addPersonalNamespace(alice)
	p := store.addProject(aliceNS)
	store.addMembership(bob, accounts.MembershipProject, p.ID, accounts.AccessReporter)

	resolver := accounts.NewResolver(store)
	ids, err := resolver.AuthorizedGroups(ctx, bob, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOwnedProjectsRequiresOwnerLevel(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	personalNS := store.addPersonalNamespace(bob)
	p0 := store.addProject(personalNS)

	ownedGroupID, ownedNS := store.addGroup()
	p1 := store.addProject(ownedNS)
	store.addMembership(bob, accounts.MembershipGroup, ownedGroupID, accounts.AccessOwner)

	memberGroupID, memberNS := store.addGroup()
	store.addProject(memberNS)
	store.addMembership(bob, accounts.MembershipGroup, memberGroupID, accounts.AccessMaster)

	resolver := accounts.NewResolver(store)
	ids, err := resolver.OwnedProjects(ctx, bob, nil)
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.True(t, contains(ids, p0.ID))
	assert.True(t, contains(ids, p1.ID))
}

func TestManageableNamespaces(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	personalNS := store.addPersonalNamespace(bob)

	masterGroupID, masterNS := store.addGroup()
	store.addMembership(bob, accounts.MembershipGroup, masterGroupID, accounts.AccessMaster)

	devGroupID, _ := store.addGroup()
	store.addMembership(bob, accounts.MembershipGroup, devGroupID, accounts.AccessDeveloper)

	resolver := accounts.NewResolver(store)
	ids, err := resolver.ManageableNamespaces(ctx, bob, nil)
	require.NoError(t, err)

	require.Len(t, ids, 2)
	assert.True(t, contains(ids, personalNS.ID))
	assert.True(t, contains(ids, masterNS.ID))
}

func TestResolverCacheMemoizesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	personalNS := store.addPersonalNamespace(bob)
	store.addProject(personalNS)

	resolver := accounts.NewResolver(store)
	cache := accounts.NewResolverCache()

	first, err := resolver.AuthorizedProjects(ctx, bob, cache)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// mutate the store; the cache still answers with the memoized set
	store.addProject(personalNS)

	cached, err := resolver.AuthorizedProjects(ctx, bob, cache)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	cache.Invalidate(bob)

	fresh, err := resolver.AuthorizedProjects(ctx, bob, cache)
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestResolverCacheHandsOutCopies(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	personalNS := store.addPersonalNamespace(bob)
	project := store.addProject(personalNS)

	resolver := accounts.NewResolver(store)
	cache := accounts.NewResolverCache()

	first, err := resolver.AuthorizedProjects(ctx, bob, cache)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// a caller trimming or reordering its result must not leak into
	// later reads from the same cache
	first[0] = uuid.New()

	again, err := resolver.AuthorizedProjects(ctx, bob, cache)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, project.ID, again[0])

	again[0] = uuid.New()

	final, err := resolver.AuthorizedProjects(ctx, bob, cache)
	require.NoError(t, err)
	require.Len(t, final, 1)
	assert.Equal(t, project.ID, final[0])
}

func TestResolverResultsAreStableOrdered(t *testing.T) {
	ctx := context.Background()
	store := newFakeResolverStore()
	bob := uuid.New()

	personalNS := store.addPersonalNamespace(bob)
	for i := 0; i < 5; i++ {
		store.addProject(personalNS)
	}

	resolver := accounts.NewResolver(store)

	first, err := resolver.AuthorizedProjects(ctx, bob, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := resolver.AuthorizedProjects(ctx, bob, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
