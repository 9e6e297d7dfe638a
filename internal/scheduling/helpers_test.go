package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/carelink/hospital-scheduling/internal/redis"
)

// passLocker runs the critical section inline. Serialization is not needed in
// single-goroutine tests.
type passLocker struct{}

func (passLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// contendedLocker simulates losing the lock race for every key.
type contendedLocker struct{}

func (contendedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// testEnv wires a service over the in-memory repository with one doctor, one
// patient, and a 09:00-12:00 window today.
type testEnv struct {
	repo    *MemoryRepository
	svc     *Service
	doctor  Doctor
	patient Patient
	date    time.Time
}

func newTestEnv() *testEnv {
	repo := NewMemoryRepository()

	doctor := Doctor{ID: uuid.New(), Name: "Dr. Asha Rao"}
	patient := Patient{ID: uuid.New(), Name: "Jonas Meyer"}
	repo.AddDoctor(doctor)
	repo.AddPatient(patient)

	date := Day(time.Now())
	_, _ = repo.CreateAvailability(context.Background(), AvailabilitySlot{
		DoctorID:    doctor.ID,
		Date:        date,
		StartTime:   9 * 60,
		EndTime:     12 * 60,
		IsAvailable: true,
	})

	return &testEnv{
		repo:    repo,
		svc:     NewService(repo, passLocker{}, nil),
		doctor:  doctor,
		patient: patient,
		date:    date,
	}
}
