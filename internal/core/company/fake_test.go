package company

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"
)

type stubClock struct {
	now time.Time
}

func (s *stubClock) Now() time.Time {
	return s.now
}

type memberKey struct {
	companyID string
	personID  string
	relation  Relation
}

type fakeRepo struct {
	companies map[string]*Company
	order     []string
	members   map[memberKey]time.Time
	locks     []string
	seq       int

	missingPeople map[string]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		companies: make(map[string]*Company),
		members:   make(map[memberKey]time.Time),
	}
}

func (r *fakeRepo) Create(_ context.Context, company *Company) (*Company, error) {
	clone := cloneCompany(company)
	r.seq++
	id := fmt.Sprintf("company-%d", r.seq)
	clone.ID = id
	r.companies[id] = clone
	r.order = append(r.order, id)
	return cloneCompany(clone), nil
}

func (r *fakeRepo) Update(_ context.Context, company *Company) (*Company, error) {
	existing, ok := r.companies[company.ID]
	if !ok || existing.DeletedAt != nil {
		return nil, ErrCompanyNotFound
	}
	r.companies[company.ID] = cloneCompany(company)
	return cloneCompany(company), nil
}

func (r *fakeRepo) SoftDelete(_ context.Context, id string, at time.Time) error {
	existing, ok := r.companies[id]
	if !ok || existing.DeletedAt != nil {
		return ErrCompanyNotFound
	}
	existing.DeletedAt = &at
	return nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*Company, error) {
	company, ok := r.companies[id]
	if !ok || company.DeletedAt != nil {
		return nil, ErrCompanyNotFound
	}
	return cloneCompany(company), nil
}

func (r *fakeRepo) List(_ context.Context, filter ListCompaniesFilter) ([]*Company, string, error) {
	var filtered []*Company
	for _, id := range r.order {
		company := r.companies[id]
		if company.DeletedAt != nil {
			continue
		}
		if filter.Unclaimed != nil && company.Unclaimed != *filter.Unclaimed {
			continue
		}
		filtered = append(filtered, cloneCompany(company))
	}

	if filter.Offset > len(filtered) {
		return []*Company{}, "", nil
	}

	end := filter.Offset + filter.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	page := filtered[filter.Offset:end]

	var nextToken string
	if end < len(filtered) {
		nextToken = strconv.Itoa(end)
	}

	return page, nextToken, nil
}

func (r *fakeRepo) LockPerson(_ context.Context, personID string) error {
	if r.missingPeople[personID] {
		return ErrPersonNotFound
	}
	r.locks = append(r.locks, "person:"+personID)
	return nil
}

func (r *fakeRepo) AddMember(_ context.Context, m Member) error {
	key := memberKey{m.CompanyID, m.PersonID, m.Relation}
	if _, ok := r.members[key]; !ok {
		r.members[key] = m.CreatedAt
	}
	return nil
}

func (r *fakeRepo) RemoveMember(_ context.Context, companyID, personID string, relation Relation) error {
	delete(r.members, memberKey{companyID, personID, relation})
	return nil
}

func (r *fakeRepo) CompaniesForPerson(_ context.Context, personID string, relation Relation, lock bool) ([]*Company, error) {
	if lock {
		r.locks = append(r.locks, "members:"+personID)
	}
	var out []*Company
	for key := range r.members {
		if key.personID == personID && key.relation == relation {
			out = append(out, cloneCompany(r.companies[key.companyID]))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeRepo) Members(_ context.Context, companyID string, relation Relation) ([]string, error) {
	var out []string
	for key := range r.members {
		if key.companyID == companyID && key.relation == relation {
			out = append(out, key.personID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *fakeRepo) has(companyID, personID string, relation Relation) bool {
	_, ok := r.members[memberKey{companyID, personID, relation}]
	return ok
}

func cloneCompany(company *Company) *Company {
	if company == nil {
		return nil
	}
	copy := *company
	if company.Description != nil {
		desc := *company.Description
		copy.Description = &desc
	}
	return &copy
}
