package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"zerina/internal/onboarding/models"
	"zerina/pkg/domain"
	"zerina/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	now   time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.now = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newApp(userID domain.UserID, submittedAt time.Time) *models.VendorApplication {
	name, country := "Acme Tools BV", "BA"
	app, err := models.NewVendorApplication(userID, models.Fields{
		LegalName: &name,
		Country:   &country,
	}, true, models.DepositPolicy{}, submittedAt)
	s.Require().NoError(err)
	return app
}

func (s *MemoryStoreSuite) TestFindLatestByUser() {
	userID := domain.NewUserID()

	s.Run("returns ErrNotFound when the user never applied", func() {
		_, err := s.store.FindLatestByUser(context.Background(), userID)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returns the most recently submitted row", func() {
		older := s.newApp(userID, s.now)
		older.Status = models.StatusRejected
		newer := s.newApp(userID, s.now.Add(time.Hour))
		s.Require().NoError(s.store.Save(context.Background(), older))
		s.Require().NoError(s.store.Save(context.Background(), newer))
		s.Require().NoError(s.store.Save(context.Background(), s.newApp(domain.NewUserID(), s.now.Add(2*time.Hour))))

		latest, err := s.store.FindLatestByUser(context.Background(), userID)
		s.Require().NoError(err)
		s.Equal(newer.ID, latest.ID)
	})
}

func (s *MemoryStoreSuite) TestSaveReturnsCopies() {
	app := s.newApp(domain.NewUserID(), s.now)
	reason := "initial"
	app.RejectionReason = &reason
	s.Require().NoError(s.store.Save(context.Background(), app))

	found, err := s.store.FindByID(context.Background(), app.ID)
	s.Require().NoError(err)
	*found.RejectionReason = "mutated"
	found.LegalName = "mutated"

	again, err := s.store.FindByID(context.Background(), app.ID)
	s.Require().NoError(err)
	s.Equal("initial", *again.RejectionReason)
	s.Equal("Acme Tools BV", again.LegalName)
}

func (s *MemoryStoreSuite) TestCreateIfNoneActive() {
	userID := domain.NewUserID()

	s.Run("inserts when no pending application exists", func() {
		s.Require().NoError(s.store.CreateIfNoneActive(context.Background(), s.newApp(userID, s.now)))
	})

	s.Run("conflicts on a second pending application", func() {
		err := s.store.CreateIfNoneActive(context.Background(), s.newApp(userID, s.now.Add(time.Minute)))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows a new application once the previous one is decided", func() {
		latest, err := s.store.FindLatestByUser(context.Background(), userID)
		s.Require().NoError(err)
		_, err = s.store.Execute(context.Background(), latest.ID,
			func(*models.VendorApplication) error { return nil },
			func(app *models.VendorApplication) { app.Status = models.StatusRejected },
		)
		s.Require().NoError(err)

		s.NoError(s.store.CreateIfNoneActive(context.Background(), s.newApp(userID, s.now.Add(2*time.Minute))))
	})
}

func (s *MemoryStoreSuite) TestCreateIfNoneActiveRace() {
	userID := domain.NewUserID()

	const attempts = 16
	var wg sync.WaitGroup
	created := make(chan struct{}, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			app := s.newApp(userID, s.now.Add(time.Duration(n)*time.Millisecond))
			if err := s.store.CreateIfNoneActive(context.Background(), app); err == nil {
				created <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(created)

	s.Len(created, 1, "exactly one pending application may be created")

	apps, err := s.store.ListByUser(context.Background(), userID)
	s.Require().NoError(err)
	s.Len(apps, 1)
}

func (s *MemoryStoreSuite) TestExecute() {
	app := s.newApp(domain.NewUserID(), s.now)
	s.Require().NoError(s.store.Save(context.Background(), app))

	s.Run("persists the mutation", func() {
		updated, err := s.store.Execute(context.Background(), app.ID,
			func(*models.VendorApplication) error { return nil },
			func(cur *models.VendorApplication) { cur.Notes = "checked" },
		)
		s.Require().NoError(err)
		s.Equal("checked", updated.Notes)

		persisted, err := s.store.FindByID(context.Background(), app.ID)
		s.Require().NoError(err)
		s.Equal("checked", persisted.Notes)
	})

	s.Run("validation failure leaves the row untouched", func() {
		_, err := s.store.Execute(context.Background(), app.ID,
			func(*models.VendorApplication) error { return sentinel.ErrInvalidState },
			func(cur *models.VendorApplication) { cur.Notes = "should not happen" },
		)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		persisted, err := s.store.FindByID(context.Background(), app.ID)
		s.Require().NoError(err)
		s.Equal("checked", persisted.Notes)
	})

	s.Run("unknown id", func() {
		_, err := s.store.Execute(context.Background(), domain.NewApplicationID(),
			func(*models.VendorApplication) error { return nil },
			func(*models.VendorApplication) {},
		)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
