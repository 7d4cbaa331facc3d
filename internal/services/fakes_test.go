package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/punchlog/timeclock-service/internal/models"
	"github.com/punchlog/timeclock-service/internal/repositories"
)

// ---------------------------------------------------------------- workers

type fakeWorkerRepo struct {
	mu      sync.Mutex
	workers map[string]*models.Worker
}

func newFakeWorkerRepo(workers ...*models.Worker) *fakeWorkerRepo {
	r := &fakeWorkerRepo{workers: map[string]*models.Worker{}}
	for _, w := range workers {
		r.workers[w.ID.String()] = w
	}
	return r
}

func (r *fakeWorkerRepo) Create(ctx context.Context, w *models.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.ID.String()] = w
	return nil
}

func (r *fakeWorkerRepo) GetByID(ctx context.Context, id string) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workers[id], nil
}

func (r *fakeWorkerRepo) GetByEmail(ctx context.Context, email string) (*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.workers {
		if w.Email == email {
			return w, nil
		}
	}
	return nil, nil
}

func (r *fakeWorkerRepo) List(ctx context.Context) ([]*models.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Worker, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w)
	}
	return out, nil
}

func (r *fakeWorkerRepo) UpdateWithRetry(ctx context.Context, id string, mutate func(*models.Worker) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	return mutate(w)
}

// ------------------------------------------------------------ credentials

type fakeCredentialRepo struct {
	mu    sync.Mutex
	creds []*models.PasskeyCredential

	updateSignCountErr error
}

func (r *fakeCredentialRepo) Create(ctx context.Context, c *models.PasskeyCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds = append(r.creds, c)
	return nil
}

func (r *fakeCredentialRepo) GetByCredentialID(ctx context.Context, credentialID []byte) (*models.PasskeyCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creds {
		if string(c.CredentialID) == string(credentialID) {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeCredentialRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.PasskeyCredential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PasskeyCredential
	for _, c := range r.creds {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCredentialRepo) UpdateSignCount(ctx context.Context, credentialID []byte, signCount uint32, lastUsedAt time.Time) error {
	if r.updateSignCountErr != nil {
		return r.updateSignCountErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creds {
		if string(c.CredentialID) == string(credentialID) {
			c.SignCount = signCount
			t := lastUsedAt
			c.LastUsedAt = &t
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeCredentialRepo) Delete(ctx context.Context, ownerID uuid.UUID, credentialID []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.creds[:0]
	for _, c := range r.creds {
		if c.OwnerID == ownerID && string(c.CredentialID) == string(credentialID) {
			continue
		}
		out = append(out, c)
	}
	r.creds = out
	return nil
}

// -------------------------------------------------------------- challenges

type fakeRegChallengeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.RegistrationChallenge
}

func newFakeRegChallengeRepo() *fakeRegChallengeRepo {
	return &fakeRegChallengeRepo{rows: map[uuid.UUID]*models.RegistrationChallenge{}}
}

func (r *fakeRegChallengeRepo) Upsert(ctx context.Context, c *models.RegistrationChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.OwnerID] = c
	return nil
}

func (r *fakeRegChallengeRepo) Consume(ctx context.Context, ownerID uuid.UUID) (*models.RegistrationChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[ownerID]
	if !ok {
		return nil, nil
	}
	delete(r.rows, ownerID)
	return c, nil
}

func (r *fakeRegChallengeRepo) CleanupExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, c := range r.rows {
		if time.Now().After(c.ExpiresAt) {
			delete(r.rows, k)
		}
	}
	return nil
}

type fakeAuthChallengeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.AuthenticationChallenge
}

func newFakeAuthChallengeRepo() *fakeAuthChallengeRepo {
	return &fakeAuthChallengeRepo{rows: map[uuid.UUID]*models.AuthenticationChallenge{}}
}

func (r *fakeAuthChallengeRepo) Create(ctx context.Context, c *models.AuthenticationChallenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = c
	return nil
}

func (r *fakeAuthChallengeRepo) Consume(ctx context.Context, id uuid.UUID) (*models.AuthenticationChallenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	delete(r.rows, id)
	return c, nil
}

func (r *fakeAuthChallengeRepo) CleanupExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, c := range r.rows {
		if time.Now().After(c.ExpiresAt) {
			delete(r.rows, k)
		}
	}
	return nil
}

// ------------------------------------------------------------ time entries

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*models.TimeEntry

	// Hooks for fault injection.
	getErr    error
	onGetByID func(id uuid.UUID)
}

func newFakeEntryRepo(entries ...*models.TimeEntry) *fakeEntryRepo {
	r := &fakeEntryRepo{entries: map[uuid.UUID]*models.TimeEntry{}}
	for _, e := range entries {
		r.entries[e.ID] = e.Clone()
	}
	return r
}

func (r *fakeEntryRepo) Create(ctx context.Context, e *models.TimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e.Clone()
	return nil
}

func (r *fakeEntryRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TimeEntry, error) {
	if r.onGetByID != nil {
		r.onGetByID(id)
	}
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (r *fakeEntryRepo) ListByWorker(ctx context.Context, workerID uuid.UUID, from, to time.Time) ([]*models.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TimeEntry
	for _, e := range r.entries {
		if e.WorkerID == workerID && !e.WorkDate.Before(from) && !e.WorkDate.After(to) {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) ListByStatus(ctx context.Context, status models.EntryStatusType) ([]*models.TimeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TimeEntry
	for _, e := range r.entries {
		if e.Status == status {
			out = append(out, e.Clone())
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) UpdateIfVersion(ctx context.Context, e *models.TimeEntry, expectedVersion int64) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[e.ID]
	if !ok || current.GetRowVersion() != expectedVersion {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	stored := e.Clone()
	stored.SetRowVersion(expectedVersion + 1)
	stored.UpdatedAt = time.Now()
	r.entries[e.ID] = stored
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *fakeEntryRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.TimeEntry) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return pgx.ErrNoRows
	}
	updated := e.Clone()
	if err := mutate(updated); err != nil {
		return err
	}
	updated.SetRowVersion(e.GetRowVersion() + 1)
	updated.UpdatedAt = time.Now()
	r.entries[id] = updated
	return nil
}

func (r *fakeEntryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

// -------------------------------------------------------------- sync queue

type fakeSyncOpRepo struct {
	mu  sync.Mutex
	ops []*models.SyncOperation
}

func newFakeSyncOpRepo() *fakeSyncOpRepo {
	return &fakeSyncOpRepo{}
}

func (r *fakeSyncOpRepo) Create(ctx context.Context, op *models.SyncOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	return nil
}

func (r *fakeSyncOpRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.SyncOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, op := range r.ops {
		if op.ID == id {
			return op, nil
		}
	}
	return nil, nil
}

func (r *fakeSyncOpRepo) ListPending(ctx context.Context, workerID uuid.UUID) ([]*models.SyncOperation, error) {
	return r.ListByStatus(ctx, workerID, models.SyncOpPending)
}

func (r *fakeSyncOpRepo) ListWorkersWithPending(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[uuid.UUID]bool{}
	var workers []uuid.UUID
	for _, op := range r.ops {
		if op.Status == models.SyncOpPending && !seen[op.WorkerID] {
			seen[op.WorkerID] = true
			workers = append(workers, op.WorkerID)
		}
	}
	return workers, nil
}

func (r *fakeSyncOpRepo) ListByStatus(ctx context.Context, workerID uuid.UUID, status models.SyncOpStatus) ([]*models.SyncOperation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SyncOperation
	for _, op := range r.ops {
		if op.WorkerID == workerID && op.Status == status {
			out = append(out, op)
		}
	}
	return out, nil
}

func (r *fakeSyncOpRepo) Update(ctx context.Context, op *models.SyncOperation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.ops {
		if existing.ID == op.ID {
			r.ops[i] = op
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeSyncOpRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.ops[:0]
	for _, op := range r.ops {
		if op.ID != id {
			out = append(out, op)
		}
	}
	r.ops = out
	return nil
}

// ----------------------------------------------------------- refresh tokens

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*models.RefreshToken{}}
}

func (r *fakeTokenRepo) Create(ctx context.Context, t *models.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[t.Token] = t
	return nil
}

func (r *fakeTokenRepo) GetByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[token]
	if !ok || t.Revoked {
		return nil, nil
	}
	return t, nil
}

func (r *fakeTokenRepo) Revoke(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tokens[token]; ok {
		t.Revoked = true
	}
	return nil
}

func (r *fakeTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.UserID.String() == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (r *fakeTokenRepo) CleanupExpired(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.tokens {
		if t.IsExpired() || t.Revoked {
			delete(r.tokens, k)
		}
	}
	return nil
}

// ------------------------------------------------------------------ admins

type fakeAdminRepo struct {
	admins map[string]*models.Admin
}

func (r *fakeAdminRepo) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.admins[username], nil
}

func (r *fakeAdminRepo) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	for _, a := range r.admins {
		if a.ID.String() == id {
			return a, nil
		}
	}
	return nil, nil
}

type fakeAttemptsRepo struct {
	mu       sync.Mutex
	failures map[string]int
	locked   map[string]time.Time
}

func newFakeAttemptsRepo() *fakeAttemptsRepo {
	return &fakeAttemptsRepo{failures: map[string]int{}, locked: map[string]time.Time{}}
}

func (r *fakeAttemptsRepo) IsLocked(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.locked[username]
	return ok && until.After(time.Now()), nil
}

func (r *fakeAttemptsRepo) RecordFailure(ctx context.Context, username string, maxAttempts int, lockDuration time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[username]++
	if r.failures[username] >= maxAttempts {
		r.locked[username] = time.Now().Add(lockDuration)
	}
	return nil
}

func (r *fakeAttemptsRepo) Reset(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.failures, username)
	delete(r.locked, username)
	return nil
}

// Interface conformance.
var (
	_ repositories.WorkerRepository                  = (*fakeWorkerRepo)(nil)
	_ repositories.PasskeyCredentialRepository       = (*fakeCredentialRepo)(nil)
	_ repositories.RegistrationChallengeRepository   = (*fakeRegChallengeRepo)(nil)
	_ repositories.AuthenticationChallengeRepository = (*fakeAuthChallengeRepo)(nil)
	_ repositories.TimeEntryRepository               = (*fakeEntryRepo)(nil)
	_ repositories.SyncOperationRepository           = (*fakeSyncOpRepo)(nil)
	_ repositories.RefreshTokenRepository            = (*fakeTokenRepo)(nil)
	_ repositories.AdminRepository                   = (*fakeAdminRepo)(nil)
	_ repositories.LoginAttemptsRepository           = (*fakeAttemptsRepo)(nil)
)
