package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/vitccacm/recruitment-portal/core/round"
)

var roundColumns = []string{
	"id", "name", "description", "prerequisite_id",
	"is_visible_before_results", "ord", "created_at", "updated_at",
}

type roundRow struct {
	ID                     string      `db:"id"`
	Name                   string      `db:"name"`
	Description            string      `db:"description"`
	PrerequisiteID         null.String `db:"prerequisite_id"`
	IsVisibleBeforeResults bool        `db:"is_visible_before_results"`
	Order                  int         `db:"ord"`
	CreatedAt              time.Time   `db:"created_at"`
	UpdatedAt              time.Time   `db:"updated_at"`
}

func (row roundRow) toRound() round.Round {
	return round.Round{
		ID:                     row.ID,
		Name:                   row.Name,
		Description:            row.Description,
		PrerequisiteID:         row.PrerequisiteID.String,
		IsVisibleBeforeResults: row.IsVisibleBeforeResults,
		Order:                  row.Order,
		CreatedAt:              row.CreatedAt.UTC(),
		UpdatedAt:              row.UpdatedAt.UTC(),
	}
}

type stateRow struct {
	RoundID         string    `db:"round_id"`
	DepartmentID    string    `db:"department_id"`
	IsLocked        bool      `db:"is_locked"`
	ResultsReleased bool      `db:"results_released"`
	NotesPublic     bool      `db:"notes_public"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (row stateRow) toState() round.DepartmentState {
	return round.DepartmentState{
		RoundID:         row.RoundID,
		DepartmentID:    row.DepartmentID,
		IsLocked:        row.IsLocked,
		ResultsReleased: row.ResultsReleased,
		NotesPublic:     row.NotesPublic,
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

type candidateRow struct {
	ID            string    `db:"id"`
	RoundID       string    `db:"round_id"`
	ApplicationID string    `db:"application_id"`
	Status        string    `db:"status"`
	Notes         string    `db:"notes"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (row candidateRow) toCandidate() round.Candidate {
	return round.Candidate{
		ID:            row.ID,
		RoundID:       row.RoundID,
		ApplicationID: row.ApplicationID,
		Status:        row.Status,
		Notes:         row.Notes,
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

type roundRepository struct {
	db *sqlx.DB
}

var _ round.Repository = (*roundRepository)(nil) // interface compliance check

func NewRoundRepository(db *sqlx.DB) *roundRepository {
	return &roundRepository{db: db}
}

func roundValues(rnd round.Round) []interface{} {
	return []interface{}{
		rnd.ID,
		rnd.Name,
		rnd.Description,
		null.NewString(rnd.PrerequisiteID, rnd.PrerequisiteID != ""),
		rnd.IsVisibleBeforeResults,
		rnd.Order,
		rnd.CreatedAt.UTC(),
		rnd.UpdatedAt.UTC(),
	}
}

func (repo roundRepository) getRound(ctx context.Context, pred interface{}) (round.Round, error) {
	query, args, err := psql.Select(roundColumns...).From("rounds").Where(pred).ToSql()
	if err != nil {
		return round.Round{}, errors.Wrap(err, "building query")
	}

	var row roundRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return round.Round{}, trapNoRowsErr(err, round.ErrNotFound, "getting round")
	}
	return row.toRound(), nil
}

func (repo roundRepository) CreateRound(ctx context.Context, rnd round.Round) (round.Round, error) {
	query, args, err := psql.Insert("rounds").Columns(roundColumns...).Values(roundValues(rnd)...).ToSql()
	if err != nil {
		return round.Round{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return round.Round{}, errors.Wrap(err, "inserting round")
	}
	return rnd, nil
}

func (repo roundRepository) GetRound(ctx context.Context, id string) (round.Round, error) {
	return repo.getRound(ctx, sq.Eq{"id": id})
}

func (repo roundRepository) queryRounds(ctx context.Context, pred interface{}) ([]round.Round, error) {
	qb := psql.Select(roundColumns...).From("rounds").OrderBy("ord ASC", "created_at ASC")
	if pred != nil {
		qb = qb.Where(pred)
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []roundRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying rounds")
	}

	rounds := make([]round.Round, 0, len(rows))
	for _, row := range rows {
		rounds = append(rounds, row.toRound())
	}
	return rounds, nil
}

func (repo roundRepository) QueryRounds(ctx context.Context) ([]round.Round, error) {
	return repo.queryRounds(ctx, nil)
}

func (repo roundRepository) UpdateRound(ctx context.Context, rnd round.Round) (round.Round, error) {
	query, args, err := psql.Update("rounds").SetMap(map[string]interface{}{
		"name":                      rnd.Name,
		"description":               rnd.Description,
		"prerequisite_id":           null.NewString(rnd.PrerequisiteID, rnd.PrerequisiteID != ""),
		"is_visible_before_results": rnd.IsVisibleBeforeResults,
		"ord":                       rnd.Order,
		"updated_at":                rnd.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": rnd.ID}).ToSql()
	if err != nil {
		return round.Round{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return round.Round{}, errors.Wrap(err, "updating round")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return round.Round{}, round.ErrNotFound
	}
	return repo.getRound(ctx, sq.Eq{"id": rnd.ID})
}

func (repo roundRepository) DeleteRoundsByID(ctx context.Context, ids ...string) error {
	query, args, err := psql.Delete("rounds").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting rounds")
	}
	return nil
}

func (repo roundRepository) QueryDependentRounds(ctx context.Context, roundID string) ([]round.Round, error) {
	return repo.queryRounds(ctx, sq.Eq{"prerequisite_id": roundID})
}

func (repo roundRepository) CreateDepartmentStates(ctx context.Context, states ...round.DepartmentState) error {
	if len(states) == 0 {
		return nil
	}

	qb := psql.Insert("round_department_states").Columns(
		"round_id", "department_id", "is_locked", "results_released", "notes_public", "updated_at",
	)
	for _, st := range states {
		qb = qb.Values(st.RoundID, st.DepartmentID, st.IsLocked, st.ResultsReleased, st.NotesPublic, st.UpdatedAt.UTC())
	}
	query, args, err := qb.Suffix("ON CONFLICT (round_id, department_id) DO NOTHING").ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "inserting round department states")
	}
	return nil
}

func (repo roundRepository) GetDepartmentState(ctx context.Context, roundID, departmentID string) (round.DepartmentState, error) {
	query, args, err := psql.Select("round_id", "department_id", "is_locked", "results_released", "notes_public", "updated_at").
		From("round_department_states").
		Where(sq.Eq{"round_id": roundID, "department_id": departmentID}).
		ToSql()
	if err != nil {
		return round.DepartmentState{}, errors.Wrap(err, "building query")
	}

	var row stateRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return round.DepartmentState{}, trapNoRowsErr(err, round.ErrStateNotFound, "getting round department state")
	}
	return row.toState(), nil
}

func (repo roundRepository) QueryDepartmentStates(ctx context.Context, filter *round.StateFilter) ([]round.DepartmentState, error) {
	qb := psql.Select("round_id", "department_id", "is_locked", "results_released", "notes_public", "updated_at").
		From("round_department_states").
		OrderBy("round_id ASC", "department_id ASC")
	if filter != nil {
		if filter.RoundID != "" {
			qb = qb.Where(sq.Eq{"round_id": filter.RoundID})
		}
		if filter.DepartmentID != "" {
			qb = qb.Where(sq.Eq{"department_id": filter.DepartmentID})
		}
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []stateRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying round department states")
	}

	states := make([]round.DepartmentState, 0, len(rows))
	for _, row := range rows {
		states = append(states, row.toState())
	}
	return states, nil
}

func (repo roundRepository) UpdateDepartmentState(ctx context.Context, state round.DepartmentState) (round.DepartmentState, error) {
	query, args, err := psql.Update("round_department_states").SetMap(map[string]interface{}{
		"is_locked":        state.IsLocked,
		"results_released": state.ResultsReleased,
		"notes_public":     state.NotesPublic,
		"updated_at":       state.UpdatedAt.UTC(),
	}).Where(sq.Eq{"round_id": state.RoundID, "department_id": state.DepartmentID}).ToSql()
	if err != nil {
		return round.DepartmentState{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return round.DepartmentState{}, errors.Wrap(err, "updating round department state")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return round.DepartmentState{}, round.ErrStateNotFound
	}
	return repo.GetDepartmentState(ctx, state.RoundID, state.DepartmentID)
}

func (repo roundRepository) DeleteDepartmentStatesByRound(ctx context.Context, roundIDs ...string) error {
	query, args, err := psql.Delete("round_department_states").Where(sq.Eq{"round_id": roundIDs}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting round department states")
	}
	return nil
}

func (repo roundRepository) GetCandidate(ctx context.Context, roundID, applicationID string) (round.Candidate, error) {
	query, args, err := psql.Select("id", "round_id", "application_id", "status", "notes", "updated_at").
		From("round_candidates").
		Where(sq.Eq{"round_id": roundID, "application_id": applicationID}).
		ToSql()
	if err != nil {
		return round.Candidate{}, errors.Wrap(err, "building query")
	}

	var row candidateRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return round.Candidate{}, trapNoRowsErr(err, round.ErrCandidateNotFound, "getting candidate")
	}
	return row.toCandidate(), nil
}

func (repo roundRepository) QueryCandidates(ctx context.Context, filter *round.CandidateFilter) ([]round.Candidate, error) {
	qb := psql.Select("id", "round_id", "application_id", "status", "notes", "updated_at").
		From("round_candidates").
		OrderBy("updated_at ASC")
	if filter != nil {
		if filter.RoundID != "" {
			qb = qb.Where(sq.Eq{"round_id": filter.RoundID})
		}
		if filter.ApplicationID != "" {
			qb = qb.Where(sq.Eq{"application_id": filter.ApplicationID})
		}
		if filter.Status != "" {
			qb = qb.Where(sq.Eq{"status": filter.Status})
		}
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []candidateRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying candidates")
	}

	cands := make([]round.Candidate, 0, len(rows))
	for _, row := range rows {
		cands = append(cands, row.toCandidate())
	}
	return cands, nil
}

func (repo roundRepository) UpsertCandidate(ctx context.Context, cand round.Candidate) (round.Candidate, error) {
	query, args, err := psql.Insert("round_candidates").
		Columns("id", "round_id", "application_id", "status", "notes", "updated_at").
		Values(cand.ID, cand.RoundID, cand.ApplicationID, cand.Status, cand.Notes, cand.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (round_id, application_id) DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return round.Candidate{}, errors.Wrap(err, "building query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return round.Candidate{}, errors.Wrap(err, "upserting candidate")
	}
	// The stored row keeps its original ID on conflict.
	return repo.GetCandidate(ctx, cand.RoundID, cand.ApplicationID)
}
