package inmemdb

import (
	"context"
	"sort"

	"github.com/vitccacm/recruitment-portal/core/round"
)

type roundRepository struct {
	db *DB
}

func NewRoundRepository(db *DB) round.Repository {
	return &roundRepository{db: db}
}

func (repo *roundRepository) queryRounds() []round.Round {
	rounds := make([]round.Round, 0, len(repo.db.rounds))
	for _, r := range repo.db.rounds {
		rounds = append(rounds, *r)
	}
	sort.SliceStable(rounds, func(i, j int) bool {
		if rounds[i].Order != rounds[j].Order {
			return rounds[i].Order < rounds[j].Order
		}
		return rounds[i].CreatedAt.Before(rounds[j].CreatedAt)
	})
	return rounds
}

func (repo *roundRepository) CreateRound(_ context.Context, rnd round.Round) (round.Round, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.rounds[rnd.ID] = &rnd
	return rnd, nil
}

func (repo *roundRepository) GetRound(_ context.Context, id string) (round.Round, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rnd, ok := repo.db.rounds[id]; ok {
		return *rnd, nil
	}
	return round.Round{}, round.ErrNotFound
}

func (repo *roundRepository) QueryRounds(_ context.Context) ([]round.Round, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.queryRounds(), nil
}

func (repo *roundRepository) UpdateRound(_ context.Context, rnd round.Round) (round.Round, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.rounds[rnd.ID]; !ok {
		return round.Round{}, round.ErrNotFound
	}
	repo.db.rounds[rnd.ID] = &rnd
	return rnd, nil
}

func (repo *roundRepository) DeleteRoundsByID(_ context.Context, ids ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range ids {
		delete(repo.db.rounds, id)
		for key, cand := range repo.db.candidates {
			if cand.RoundID == id {
				delete(repo.db.candidates, key)
			}
		}
	}
	return nil
}

func (repo *roundRepository) QueryDependentRounds(_ context.Context, roundID string) ([]round.Round, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	dependents := make([]round.Round, 0)
	for _, rnd := range repo.queryRounds() {
		if rnd.PrerequisiteID == roundID {
			dependents = append(dependents, rnd)
		}
	}
	return dependents, nil
}

// Department states

func (repo *roundRepository) CreateDepartmentStates(_ context.Context, states ...round.DepartmentState) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, state := range states {
		key := pairKey(state.RoundID, state.DepartmentID)
		if _, exists := repo.db.states[key]; exists {
			continue
		}
		s := state
		repo.db.states[key] = &s
	}
	return nil
}

func (repo *roundRepository) GetDepartmentState(_ context.Context, roundID, departmentID string) (round.DepartmentState, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if state, ok := repo.db.states[pairKey(roundID, departmentID)]; ok {
		return *state, nil
	}
	return round.DepartmentState{}, round.ErrStateNotFound
}

func (repo *roundRepository) QueryDepartmentStates(_ context.Context, filter *round.StateFilter) ([]round.DepartmentState, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	states := make([]round.DepartmentState, 0)
	for _, state := range repo.db.states {
		if filter != nil {
			if filter.RoundID != "" && state.RoundID != filter.RoundID {
				continue
			}
			if filter.DepartmentID != "" && state.DepartmentID != filter.DepartmentID {
				continue
			}
		}
		states = append(states, *state)
	}
	sort.SliceStable(states, func(i, j int) bool {
		if states[i].RoundID != states[j].RoundID {
			return states[i].RoundID < states[j].RoundID
		}
		return states[i].DepartmentID < states[j].DepartmentID
	})
	return states, nil
}

func (repo *roundRepository) UpdateDepartmentState(_ context.Context, state round.DepartmentState) (round.DepartmentState, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pairKey(state.RoundID, state.DepartmentID)
	if _, ok := repo.db.states[key]; !ok {
		return round.DepartmentState{}, round.ErrStateNotFound
	}
	repo.db.states[key] = &state
	return state, nil
}

func (repo *roundRepository) DeleteDepartmentStatesByRound(_ context.Context, roundIDs ...string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, id := range roundIDs {
		for key, state := range repo.db.states {
			if state.RoundID == id {
				delete(repo.db.states, key)
			}
		}
	}
	return nil
}

// Candidates

func (repo *roundRepository) GetCandidate(_ context.Context, roundID, applicationID string) (round.Candidate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if cand, ok := repo.db.candidates[pairKey(roundID, applicationID)]; ok {
		return *cand, nil
	}
	return round.Candidate{}, round.ErrCandidateNotFound
}

func (repo *roundRepository) QueryCandidates(_ context.Context, filter *round.CandidateFilter) ([]round.Candidate, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cands := make([]round.Candidate, 0)
	for _, cand := range repo.db.candidates {
		if filter != nil {
			if filter.RoundID != "" && cand.RoundID != filter.RoundID {
				continue
			}
			if filter.ApplicationID != "" && cand.ApplicationID != filter.ApplicationID {
				continue
			}
			if filter.Status != "" && cand.Status != filter.Status {
				continue
			}
		}
		cands = append(cands, *cand)
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].ID < cands[j].ID })
	return cands, nil
}

func (repo *roundRepository) UpsertCandidate(_ context.Context, cand round.Candidate) (round.Candidate, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := pairKey(cand.RoundID, cand.ApplicationID)
	if existing, ok := repo.db.candidates[key]; ok {
		cand.ID = existing.ID
	}
	repo.db.candidates[key] = &cand
	return cand, nil
}
