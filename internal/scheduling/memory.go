package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository with the same semantics as the
// Postgres one, including the active-slot uniqueness guarantee. It backs
// package tests and local development without a database.
type MemoryRepository struct {
	mu       sync.Mutex
	doctors  map[uuid.UUID]Doctor
	patients map[uuid.UUID]Patient
	slots    map[uuid.UUID]AvailabilitySlot
	bookings map[uuid.UUID]Booking
	records  map[uuid.UUID]TreatmentRecord
	events   []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		doctors:  make(map[uuid.UUID]Doctor),
		patients: make(map[uuid.UUID]Patient),
		slots:    make(map[uuid.UUID]AvailabilitySlot),
		bookings: make(map[uuid.UUID]Booking),
		records:  make(map[uuid.UUID]TreatmentRecord),
	}
}

// AddDoctor and AddPatient register reference rows, standing in for the admin
// CRUD screens that own them in the full system.
func (r *MemoryRepository) AddDoctor(d Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.doctors[d.ID] = d
}

func (r *MemoryRepository) AddPatient(p Patient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.patients[p.ID] = p
}

func (r *MemoryRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (r *MemoryRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) CreateAvailability(ctx context.Context, slot AvailabilitySlot) (*AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot.ID = uuid.New()
	slot.CreatedAt = time.Now()
	r.slots[slot.ID] = slot
	return &slot, nil
}

func (r *MemoryRepository) ListAvailability(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []AvailabilitySlot
	for _, s := range r.slots {
		if s.DoctorID == doctorID && !s.Date.Before(from) && !s.Date.After(to) {
			result = append(result, s)
		}
	}
	sortSlots(result)
	return result, nil
}

func (r *MemoryRepository) WindowsFor(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]AvailabilitySlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []AvailabilitySlot
	for _, s := range r.slots {
		if s.DoctorID == doctorID && s.Date.Equal(date) {
			result = append(result, s)
		}
	}
	sortSlots(result)
	return result, nil
}

func sortSlots(slots []AvailabilitySlot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Date.Equal(slots[j].Date) {
			return slots[i].Date.Before(slots[j].Date)
		}
		return slots[i].StartTime < slots[j].StartTime
	})
}

func (r *MemoryRepository) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(r.slots, id)
	return nil
}

func (r *MemoryRepository) DeleteAvailabilityBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.slots {
		if s.Date.Before(cutoff) {
			delete(r.slots, id)
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (r *MemoryRepository) GetActiveBookingForSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, at TimeOfDay) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := r.activeBookingLocked(doctorID, date, at)
	if b == nil {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func (r *MemoryRepository) activeBookingLocked(doctorID uuid.UUID, date time.Time, at TimeOfDay) *Booking {
	for _, b := range r.bookings {
		if b.DoctorID == doctorID && b.Date.Equal(date) && b.Time == at && b.Status == StatusBooked {
			found := b
			return &found
		}
	}
	return nil
}

func (r *MemoryRepository) CreateBooking(ctx context.Context, patientID, doctorID uuid.UUID, date time.Time, at TimeOfDay) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeBookingLocked(doctorID, date, at) != nil {
		return nil, ErrSlotUnavailable
	}

	now := time.Now()
	b := Booking{
		ID:        uuid.New(),
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      at,
		Status:    StatusBooked,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.bookings[b.ID] = b
	return &b, nil
}

func (r *MemoryRepository) CancelBooking(ctx context.Context, id uuid.UUID, reason *string) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.Status != StatusBooked {
		return nil, ErrBookingNotFound
	}

	b.Status = StatusCancelled
	b.CancellationReason = reason
	b.UpdatedAt = time.Now()
	r.bookings[id] = b
	return &b, nil
}

func (r *MemoryRepository) CompleteBooking(ctx context.Context, id uuid.UUID, rec TreatmentRecord) (*Booking, *TreatmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok || b.Status != StatusBooked {
		return nil, nil, ErrInvalidTransition
	}

	for _, existing := range r.records {
		if existing.BookingID == id {
			return nil, nil, ErrDuplicateRecord
		}
	}

	now := time.Now()
	b.Status = StatusCompleted
	b.UpdatedAt = now
	r.bookings[id] = b

	rec.ID = uuid.New()
	rec.BookingID = id
	rec.RecordedAt = now
	rec.UpdatedAt = now
	r.records[rec.ID] = rec

	return &b, &rec, nil
}

func (r *MemoryRepository) GetBookingDetail(ctx context.Context, id uuid.UUID) (*BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	d := r.detailLocked(b)
	return &d, nil
}

func (r *MemoryRepository) detailLocked(b Booking) BookingDetail {
	d := BookingDetail{Booking: b}
	if p, ok := r.patients[b.PatientID]; ok {
		d.PatientName = p.Name
	}
	if doc, ok := r.doctors[b.DoctorID]; ok {
		d.DoctorName = doc.Name
		d.DoctorSpecialty = doc.Specialty
	}
	return d
}

func (r *MemoryRepository) ListBookingsForPatient(ctx context.Context, patientID uuid.UUID, status *BookingStatus) ([]BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []BookingDetail
	for _, b := range r.bookings {
		if b.PatientID != patientID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		result = append(result, r.detailLocked(b))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].Time > result[j].Time
	})
	return result, nil
}

func (r *MemoryRepository) ListBookingsForDoctor(ctx context.Context, doctorID uuid.UUID, status *BookingStatus, from, to *time.Time) ([]BookingDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []BookingDetail
	for _, b := range r.bookings {
		if b.DoctorID != doctorID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		if from != nil && b.Date.Before(*from) {
			continue
		}
		if to != nil && b.Date.After(*to) {
			continue
		}
		result = append(result, r.detailLocked(b))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}

func (r *MemoryRepository) InsertTreatmentRecord(ctx context.Context, rec TreatmentRecord) (*TreatmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.records {
		if existing.BookingID == rec.BookingID {
			return nil, ErrDuplicateRecord
		}
	}

	now := time.Now()
	rec.ID = uuid.New()
	rec.RecordedAt = now
	rec.UpdatedAt = now
	r.records[rec.ID] = rec
	return &rec, nil
}

func (r *MemoryRepository) GetTreatmentRecordByID(ctx context.Context, id uuid.UUID) (*TreatmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &rec, nil
}

func (r *MemoryRepository) UpdateTreatmentRecord(ctx context.Context, id uuid.UUID, diagnosis, prescription, notes *string) (*TreatmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}

	if diagnosis != nil {
		rec.Diagnosis = *diagnosis
	}
	if prescription != nil {
		rec.Prescription = prescription
	}
	if notes != nil {
		rec.Notes = notes
	}
	rec.UpdatedAt = time.Now()
	r.records[id] = rec
	return &rec, nil
}

func (r *MemoryRepository) ListTreatmentHistory(ctx context.Context, patientID uuid.UUID) ([]TreatmentHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []TreatmentHistoryEntry
	for _, rec := range r.records {
		b, ok := r.bookings[rec.BookingID]
		if !ok || b.PatientID != patientID {
			continue
		}

		entry := TreatmentHistoryEntry{
			TreatmentRecord: rec,
			BookingDate:     b.Date,
			BookingTime:     b.Time,
		}
		if doc, ok := r.doctors[b.DoctorID]; ok {
			entry.DoctorName = doc.Name
		}
		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RecordedAt.After(result[j].RecordedAt)
	})
	return result, nil
}

func (r *MemoryRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns the audit rows written so far, oldest first.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}
