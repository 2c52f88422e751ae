package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mealsync/server/internal/caldav"
	"github.com/mealsync/server/internal/models"
)

// fakeClient records CalDAV calls and can be programmed to fail
type fakeClient struct {
	mu          sync.Mutex
	createErr   error
	deleteErr   error
	createCalls []caldav.Event
	deleteCalls []string
	nextUID     int
}

func (c *fakeClient) TestConnection(ctx context.Context) error { return nil }

func (c *fakeClient) CreateEvent(ctx context.Context, event caldav.Event) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls = append(c.createCalls, event)
	if c.createErr != nil {
		return "", c.createErr
	}
	c.nextUID++
	return fmt.Sprintf("uid-%d", c.nextUID), nil
}

func (c *fakeClient) DeleteEvent(ctx context.Context, uid string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteCalls = append(c.deleteCalls, uid)
	return c.deleteErr
}

func (c *fakeClient) created() []caldav.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]caldav.Event(nil), c.createCalls...)
}

func (c *fakeClient) deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleteCalls...)
}

// fakeFactory hands out one shared fake client for every account
type fakeFactory struct {
	client *fakeClient
	err    error
}

func (f *fakeFactory) ClientFor(account *models.CaldavAccount) (caldav.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

// fakeAccountRepo holds accounts in memory keyed by user id
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.CaldavAccount
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*models.CaldavAccount)}
}

func (r *fakeAccountRepo) GetByUserID(ctx context.Context, userID string) (*models.CaldavAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[userID], nil
}

func (r *fakeAccountRepo) Upsert(ctx context.Context, account *models.CaldavAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.UserID] = account
	return nil
}

func (r *fakeAccountRepo) Delete(ctx context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.accounts[userID]
	delete(r.accounts, userID)
	return ok, nil
}

func (r *fakeAccountRepo) ListEnabledByUserIDs(ctx context.Context, userIDs []string) ([]*models.CaldavAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.CaldavAccount
	for _, id := range userIDs {
		if acct, ok := r.accounts[id]; ok && acct.Enabled {
			out = append(out, acct)
		}
	}
	// callers expect oldest registration first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

// fakeStatusRepo holds sync status rows in memory keyed by (user, item)
type fakeStatusRepo struct {
	mu   sync.Mutex
	rows map[string]*models.SyncStatus
}

func newFakeStatusRepo() *fakeStatusRepo {
	return &fakeStatusRepo{rows: make(map[string]*models.SyncStatus)}
}

func statusKey(userID, itemID string) string { return userID + "/" + itemID }

func (r *fakeStatusRepo) Get(ctx context.Context, userID, itemID string) (*models.SyncStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[statusKey(userID, itemID)]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeStatusRepo) Upsert(ctx context.Context, status *models.SyncStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *status
	copied.UpdatedAt = time.Now().UTC()
	r.rows[statusKey(status.UserID, status.ItemID)] = &copied
	return nil
}

func (r *fakeStatusRepo) MarkRemoved(ctx context.Context, userID, itemID string, errorMessage *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[statusKey(userID, itemID)]; ok {
		row.Status = models.SyncStateRemoved
		row.CaldavEventUID = nil
		row.ErrorMessage = errorMessage
		row.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *fakeStatusRepo) ListByUser(ctx context.Context, userID, statusFilter string, skip, take int) ([]*models.SyncStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SyncStatus
	for _, row := range r.rows {
		if row.UserID == userID && (statusFilter == "" || row.Status == statusFilter) {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeStatusRepo) CountByUser(ctx context.Context, userID, statusFilter string) (int, error) {
	rows, _ := r.ListByUser(ctx, userID, statusFilter, 0, 0)
	return len(rows), nil
}

func (r *fakeStatusRepo) ListRetryable(ctx context.Context, userID string) ([]*models.SyncStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SyncStatus
	for _, row := range r.rows {
		if row.UserID == userID && row.IsRetryable() {
			copied := *row
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeStatusRepo) ListUserIDsWithRetryable(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, row := range r.rows {
		if row.IsRetryable() && !seen[row.UserID] {
			seen[row.UserID] = true
			out = append(out, row.UserID)
		}
	}
	return out, nil
}

func (r *fakeStatusRepo) Summary(ctx context.Context, userID string) (*models.SyncSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := &models.SyncSummary{}
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		switch row.Status {
		case models.SyncStatePending:
			summary.Pending++
		case models.SyncStateSynced:
			summary.Synced++
		case models.SyncStateFailed:
			summary.Failed++
		case models.SyncStateRemoved:
			summary.Removed++
		}
	}
	return summary, nil
}

// fakeHouseholdRepo holds member lists in memory
type fakeHouseholdRepo struct {
	members map[string][]string
}

func newFakeHouseholdRepo() *fakeHouseholdRepo {
	return &fakeHouseholdRepo{members: make(map[string][]string)}
}

func (r *fakeHouseholdRepo) GetMemberUserIDs(ctx context.Context, householdID string) ([]string, error) {
	return r.members[householdID], nil
}

func (r *fakeHouseholdRepo) Add(ctx context.Context, household *models.Household) error { return nil }

func (r *fakeHouseholdRepo) AddMember(ctx context.Context, householdID, userID string) error {
	r.members[householdID] = append(r.members[householdID], userID)
	return nil
}

// fakeItemRepo holds planned items in memory
type fakeItemRepo struct {
	mu    sync.Mutex
	items map[string]*models.PlannedItem
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[string]*models.PlannedItem)}
}

func (r *fakeItemRepo) GetByID(ctx context.Context, id string) (*models.PlannedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id], nil
}

func (r *fakeItemRepo) Add(ctx context.Context, item *models.PlannedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ID] = item
	return nil
}

func (r *fakeItemRepo) Update(ctx context.Context, item *models.PlannedItem) error {
	return r.Add(ctx, item)
}

func (r *fakeItemRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[id]
	delete(r.items, id)
	return ok, nil
}

func (r *fakeItemRepo) ListByUser(ctx context.Context, userID string) ([]*models.PlannedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlannedItem
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) ListFutureByUser(ctx context.Context, userID string, from time.Time) ([]*models.PlannedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlannedItem
	for _, item := range r.items {
		if item.UserID == userID && !item.Date.Before(from) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) ListByRecipe(ctx context.Context, recipeID string) ([]*models.PlannedItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PlannedItem
	for _, item := range r.items {
		if item.RecipeID != nil && *item.RecipeID == recipeID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) UpdateTitlesByRecipe(ctx context.Context, recipeID, newTitle string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, item := range r.items {
		if item.RecipeID != nil && *item.RecipeID == recipeID {
			item.Title = newTitle
			count++
		}
	}
	return count, nil
}

// test helpers

func testAccount(userID string, createdAt time.Time) *models.CaldavAccount {
	return &models.CaldavAccount{
		UserID:          userID,
		ServerURL:       "https://cal.example.com/" + userID + "/",
		Username:        userID,
		PasswordEnc:     "enc",
		Enabled:         true,
		BreakfastWindow: models.DefaultBreakfastWindow,
		LunchWindow:     models.DefaultLunchWindow,
		DinnerWindow:    models.DefaultDinnerWindow,
		SnackWindow:     models.DefaultSnackWindow,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func testRequest(userID, itemID, title string) SyncRequest {
	return SyncRequest{
		UserID:     userID,
		ItemID:     itemID,
		ItemType:   models.ItemTypeNote,
		EventTitle: title,
		Date:       time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Slot:       models.SlotDinner,
	}
}
