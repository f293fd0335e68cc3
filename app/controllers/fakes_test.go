package controllers

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/thrivewithai/thrivewithai/app/models"
	"github.com/thrivewithai/thrivewithai/app/repository"
	"github.com/thrivewithai/thrivewithai/internal/pkg/usercontext"
)

type fakeJobs struct {
	mu        sync.Mutex
	customers []uint
	pushes    []uint
	mails     []string
	err       error
}

func (f *fakeJobs) EnqueueCreateCustomer(userID uint, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers = append(f.customers, userID)
	return f.err
}

func (f *fakeJobs) EnqueuePushLocalState(userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, userID)
	return f.err
}

func (f *fakeJobs) EnqueueSendMail(_ []string, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mails = append(f.mails, subject)
	return f.err
}

func withUser(uc usercontext.UserContext) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.Set(c, uc)
		return c.Next()
	}
}

func loggedIn(userID uint, email string) usercontext.UserContext {
	return usercontext.UserContext{UserID: userID, Username: "user", Email: email, IsLoggedIn: true}
}

var _ repository.UserRepository = (*fakeUsers)(nil)

type fakeUsers struct {
	mu       sync.Mutex
	byID     map[uint]*models.User
	links    map[string]uint
	lastSeen map[uint]bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint]*models.User{}, links: map[string]uint{}, lastSeen: map[uint]bool{}}
}

func (f *fakeUsers) Create(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = uint(len(f.byID) + 1)
	c := *user
	f.byID[user.ID] = &c
	return nil
}

func (f *fakeUsers) GetByID(id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) GetByEmail(email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == models.NormalizeEmail(email) {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByProvider(provider, providerUserID string) (*models.User, error) {
	f.mu.Lock()
	id, ok := f.links[provider+":"+providerUserID]
	f.mu.Unlock()
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.GetByID(id)
}

func (f *fakeUsers) LinkProvider(userID uint, provider, providerUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.links[provider+":"+providerUserID] = userID
	return nil
}

func (f *fakeUsers) TouchLastLogin(id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSeen[id] = true
	return nil
}

func (f *fakeUsers) setStatus(id uint, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].Status = status
}

func (f *fakeUsers) List(offset, limit int) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.byID))
	for id := uint(1); id <= uint(len(f.byID)); id++ {
		if u, ok := f.byID[id]; ok {
			out = append(out, *u)
		}
	}
	if offset >= len(out) {
		return []models.User{}, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (f *fakeUsers) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byID)), nil
}
