package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/db"
)

type Service struct {
	repo   Repository
	tx     db.Transactor
	logger zerolog.Logger
}

func NewService(repo Repository, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tx: tx, logger: logger.With().Str("component", "catalog").Logger()}
}

func (s *Service) Create(ctx context.Context, orgID int64, in Input) (*TestDefinition, error) {
	t := &TestDefinition{OrgID: orgID, ID: uuid.New()}
	in.apply(t)
	t.SubTests = in.SubTests
	if err := t.Validate(); err != nil {
		return nil, err
	}
	children := t.SubTests
	t.SubTests = []uuid.UUID{}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, t); err != nil {
			return err
		}
		if len(children) == 0 {
			return nil
		}
		return s.link(ctx, t, children)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, orgID int64, id uuid.UUID) (*TestDefinition, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*TestDefinition, int, error) {
	return s.repo.List(ctx, orgID, f, limit, offset)
}

// Update replaces the definition. A nil SubTests keeps the current members
// of a group; a group turned into a leaf releases all its members.
func (s *Service) Update(ctx context.Context, orgID int64, id uuid.UUID, in Input) (*TestDefinition, error) {
	var out *TestDefinition
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.Get(ctx, orgID, id)
		if err != nil {
			return err
		}
		wasGroup := t.IsGroup()
		in.apply(t)

		members := t.SubTests
		switch {
		case in.SubTests != nil:
			members = in.SubTests
		case wasGroup && !t.IsGroup():
			members = nil
		}
		current := t.SubTests
		t.SubTests = members
		if err := t.Validate(); err != nil {
			return err
		}
		t.SubTests = current

		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		if in.SubTests != nil || (wasGroup && !t.IsGroup()) {
			if err := s.link(ctx, t, members); err != nil {
				return err
			}
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetSubTests replaces a group's ordered member list and maintains the
// members' back references in the same transaction.
func (s *Service) SetSubTests(ctx context.Context, orgID int64, groupID uuid.UUID, childIDs []uuid.UUID) (*TestDefinition, error) {
	var out *TestDefinition
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		group, err := s.repo.Get(ctx, orgID, groupID)
		if err != nil {
			return err
		}
		if !group.IsGroup() {
			return apperr.Validation("test %s is not a group", groupID)
		}
		if err := s.link(ctx, group, childIDs); err != nil {
			return err
		}
		out = group
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// link moves group to the member list next. Members leaving the group get
// their parent cleared, new members get it set, and members present in both
// lists are left untouched.
func (s *Service) link(ctx context.Context, group *TestDefinition, next []uuid.UUID) error {
	if next == nil {
		next = []uuid.UUID{}
	}
	seen := make(map[uuid.UUID]bool, len(next))
	for _, id := range next {
		if id == group.ID {
			return apperr.Validation("a group cannot contain itself")
		}
		if seen[id] {
			return apperr.Validation("duplicate sub test %s", id)
		}
		seen[id] = true
	}

	children, err := s.repo.GetMany(ctx, group.OrgID, next)
	if err != nil {
		return err
	}
	found := make(map[uuid.UUID]*TestDefinition, len(children))
	for _, c := range children {
		found[c.ID] = c
	}
	for _, id := range next {
		c, ok := found[id]
		if !ok {
			return apperr.Validation("sub test %s does not exist", id)
		}
		if c.ParentGroupID != nil && *c.ParentGroupID != group.ID {
			return apperr.Validation("sub test %s already belongs to group %s", id, *c.ParentGroupID)
		}
	}

	ancestors, err := s.ancestors(ctx, group)
	if err != nil {
		return err
	}
	for _, id := range next {
		if ancestors[id] {
			return apperr.Validation("sub test %s contains group %s", id, group.ID)
		}
	}

	removed, added := diff(group.SubTests, next)
	if _, err := s.repo.SetParent(ctx, group.OrgID, removed, nil); err != nil {
		return err
	}
	groupID := group.ID
	if _, err := s.repo.SetParent(ctx, group.OrgID, added, &groupID); err != nil {
		return err
	}
	if err := s.repo.SetSubTests(ctx, group.OrgID, group.ID, next); err != nil {
		return err
	}

	s.logger.Debug().
		Str("group", group.ID.String()).
		Int("added", len(added)).
		Int("removed", len(removed)).
		Msg("group members updated")
	group.SubTests = next
	return nil
}

// ancestors collects the groups above group by following parent links.
func (s *Service) ancestors(ctx context.Context, group *TestDefinition) (map[uuid.UUID]bool, error) {
	seen := make(map[uuid.UUID]bool)
	parent := group.ParentGroupID
	for parent != nil && !seen[*parent] {
		seen[*parent] = true
		p, err := s.repo.Get(ctx, group.OrgID, *parent)
		if err != nil {
			return nil, err
		}
		parent = p.ParentGroupID
	}
	return seen, nil
}

// diff returns old \ next and next \ old, each in input order.
func diff(old, next []uuid.UUID) (removed, added []uuid.UUID) {
	inOld := make(map[uuid.UUID]bool, len(old))
	for _, id := range old {
		inOld[id] = true
	}
	inNext := make(map[uuid.UUID]bool, len(next))
	for _, id := range next {
		inNext[id] = true
		if !inOld[id] {
			added = append(added, id)
		}
	}
	for _, id := range old {
		if !inNext[id] {
			removed = append(removed, id)
		}
	}
	return removed, added
}

// Delete removes a test. Deleting a group releases its members; deleting a
// member drops it from its group's list.
func (s *Service) Delete(ctx context.Context, orgID int64, id uuid.UUID) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.Get(ctx, orgID, id)
		if err != nil {
			return err
		}
		if t.IsGroup() && len(t.SubTests) > 0 {
			if _, err := s.repo.SetParent(ctx, orgID, t.SubTests, nil); err != nil {
				return err
			}
		}
		if t.ParentGroupID != nil {
			if err := s.repo.RemoveSubTest(ctx, orgID, *t.ParentGroupID, t.ID); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, orgID, id)
	})
}

// Resolve looks up many tests at once. Ids that do not exist in the tenant
// are absent from the result.
func (s *Service) Resolve(ctx context.Context, orgID int64, ids []uuid.UUID) (map[uuid.UUID]*TestDefinition, error) {
	tests, err := s.repo.GetMany(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*TestDefinition, len(tests))
	for _, t := range tests {
		out[t.ID] = t
	}
	return out, nil
}
