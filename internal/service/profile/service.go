// Package profile manages emergency contacts and prescriptions of a profile.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/model/profile"
	"github.com/wellbeingchat/backend/internal/service/reminder"
	"github.com/wellbeingchat/backend/internal/store"
)

var (
	ErrContactLimit = fmt.Errorf("%w: at most %d emergency contacts", apperr.ErrValidation, profile.MaxEmergencyContacts)
	ErrProofMissing = fmt.Errorf("%w: attach a proof of prescription before setting a reminder", apperr.ErrValidation)
)

// Scheduler is the reminder registry used by prescriptions.
type Scheduler interface {
	Arm(ctx context.Context, profileID string, p profile.Prescription) (reminder.Handle, error)
	Cancel(profileID, prescriptionID string, handle reminder.Handle) error
	Active(profileID, prescriptionID string) (reminder.Armed, bool)
}

// PrescriptionView is a prescription decorated with its runtime reminder.
type PrescriptionView struct {
	profile.Prescription
	Reminder *reminder.Armed `json:"reminder,omitempty"`
}

// PrescriptionInput carries editable prescription fields.
type PrescriptionInput struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
	Time   string `json:"time"`
}

// ContactInput carries editable contact fields.
type ContactInput struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Service owns the contact and prescription collections.
type Service struct {
	store     store.Store
	scheduler Scheduler

	mu sync.Mutex
}

// NewService creates the profile service.
func NewService(st store.Store, scheduler Scheduler) *Service {
	return &Service{store: st, scheduler: scheduler}
}

// Contacts lists emergency contacts.
func (s *Service) Contacts(ctx context.Context, profileID string) ([]profile.EmergencyContact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.LoadList[profile.EmergencyContact](ctx, s.store, profileID, store.KeyEmergencyContacts)
}

// AddContact appends a contact while under the limit.
func (s *Service) AddContact(ctx context.Context, profileID string, in ContactInput) (profile.EmergencyContact, error) {
	if err := validateContact(in); err != nil {
		return profile.EmergencyContact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := store.LoadList[profile.EmergencyContact](ctx, s.store, profileID, store.KeyEmergencyContacts)
	if err != nil {
		return profile.EmergencyContact{}, err
	}
	if len(contacts) >= profile.MaxEmergencyContacts {
		return profile.EmergencyContact{}, ErrContactLimit
	}

	contact := profile.EmergencyContact{
		ID:    uuid.NewString(),
		Name:  strings.TrimSpace(in.Name),
		Phone: strings.TrimSpace(in.Phone),
	}
	contacts = append(contacts, contact)
	if err := s.store.Save(ctx, profileID, store.KeyEmergencyContacts, contacts); err != nil {
		return profile.EmergencyContact{}, err
	}
	return contact, nil
}

// UpdateContact replaces the fields of an existing contact.
func (s *Service) UpdateContact(ctx context.Context, profileID, id string, in ContactInput) (profile.EmergencyContact, error) {
	if err := validateContact(in); err != nil {
		return profile.EmergencyContact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := store.LoadList[profile.EmergencyContact](ctx, s.store, profileID, store.KeyEmergencyContacts)
	if err != nil {
		return profile.EmergencyContact{}, err
	}
	for i := range contacts {
		if contacts[i].ID != id {
			continue
		}
		contacts[i].Name = strings.TrimSpace(in.Name)
		contacts[i].Phone = strings.TrimSpace(in.Phone)
		if err := s.store.Save(ctx, profileID, store.KeyEmergencyContacts, contacts); err != nil {
			return profile.EmergencyContact{}, err
		}
		return contacts[i], nil
	}
	return profile.EmergencyContact{}, fmt.Errorf("contact %s: %w", id, apperr.ErrNotFound)
}

// RemoveContact deletes a contact.
func (s *Service) RemoveContact(ctx context.Context, profileID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := store.LoadList[profile.EmergencyContact](ctx, s.store, profileID, store.KeyEmergencyContacts)
	if err != nil {
		return err
	}
	kept := contacts[:0]
	for _, c := range contacts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(contacts) {
		return fmt.Errorf("contact %s: %w", id, apperr.ErrNotFound)
	}
	return s.store.Save(ctx, profileID, store.KeyEmergencyContacts, kept)
}

// Prescriptions lists prescriptions with their armed reminders.
func (s *Service) Prescriptions(ctx context.Context, profileID string) ([]PrescriptionView, error) {
	s.mu.Lock()
	items, err := store.LoadList[profile.Prescription](ctx, s.store, profileID, store.KeyPrescriptions)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	views := make([]PrescriptionView, 0, len(items))
	for _, p := range items {
		views = append(views, s.view(profileID, p))
	}
	return views, nil
}

// AddPrescription appends a prescription. Every field may be blank.
func (s *Service) AddPrescription(ctx context.Context, profileID string, in PrescriptionInput) (PrescriptionView, error) {
	if err := validateTime(in.Time); err != nil {
		return PrescriptionView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := store.LoadList[profile.Prescription](ctx, s.store, profileID, store.KeyPrescriptions)
	if err != nil {
		return PrescriptionView{}, err
	}

	p := profile.Prescription{
		ID:     uuid.NewString(),
		Name:   strings.TrimSpace(in.Name),
		Dosage: strings.TrimSpace(in.Dosage),
		Time:   strings.TrimSpace(in.Time),
	}
	items = append(items, p)
	if err := s.store.Save(ctx, profileID, store.KeyPrescriptions, items); err != nil {
		return PrescriptionView{}, err
	}
	return PrescriptionView{Prescription: p}, nil
}

// UpdatePrescription edits a prescription. An armed reminder is re-armed
// with the new values, or canceled when the time is cleared.
func (s *Service) UpdatePrescription(ctx context.Context, profileID, id string, in PrescriptionInput) (PrescriptionView, error) {
	if err := validateTime(in.Time); err != nil {
		return PrescriptionView{}, err
	}

	updated, err := s.mutatePrescription(ctx, profileID, id, func(p *profile.Prescription) error {
		p.Name = strings.TrimSpace(in.Name)
		p.Dosage = strings.TrimSpace(in.Dosage)
		p.Time = strings.TrimSpace(in.Time)
		return nil
	})
	if err != nil {
		return PrescriptionView{}, err
	}

	if armed, ok := s.scheduler.Active(profileID, id); ok {
		if updated.Time == "" {
			s.cancel(profileID, id, armed.Handle)
		} else if _, err := s.scheduler.Arm(ctx, profileID, updated); err != nil {
			log.Warn().Err(err).Str("component", "profile").Str("prescription", id).Msg("re-arm after edit failed")
		}
	}
	return s.view(profileID, updated), nil
}

// RemovePrescription deletes a prescription and cancels its reminder.
func (s *Service) RemovePrescription(ctx context.Context, profileID, id string) error {
	s.mu.Lock()
	items, err := store.LoadList[profile.Prescription](ctx, s.store, profileID, store.KeyPrescriptions)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	kept := items[:0]
	for _, p := range items {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(items) {
		s.mu.Unlock()
		return fmt.Errorf("prescription %s: %w", id, apperr.ErrNotFound)
	}
	err = s.store.Save(ctx, profileID, store.KeyPrescriptions, kept)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.cancel(profileID, id, "")
	return nil
}

// AttachFile records the metadata of a proof of prescription.
func (s *Service) AttachFile(ctx context.Context, profileID, id string, meta profile.FileMeta) (PrescriptionView, error) {
	if strings.TrimSpace(meta.Name) == "" {
		return PrescriptionView{}, apperr.Validation("file name is required")
	}
	if meta.Size < 0 {
		return PrescriptionView{}, apperr.Validation("file size must not be negative")
	}
	if meta.Size > profile.MaxProofFileSize {
		return PrescriptionView{}, apperr.Validation("file size must be less than 5MB")
	}

	updated, err := s.mutatePrescription(ctx, profileID, id, func(p *profile.Prescription) error {
		p.File = &profile.FileMeta{Name: meta.Name, Type: meta.Type, Size: meta.Size}
		return nil
	})
	if err != nil {
		return PrescriptionView{}, err
	}
	return s.view(profileID, updated), nil
}

// SetReminder arms the daily reminder of a prescription.
func (s *Service) SetReminder(ctx context.Context, profileID, id string) (PrescriptionView, error) {
	p, err := s.find(ctx, profileID, id)
	if err != nil {
		return PrescriptionView{}, err
	}
	if p.File == nil {
		return PrescriptionView{}, ErrProofMissing
	}
	if _, err := s.scheduler.Arm(ctx, profileID, p); err != nil {
		return PrescriptionView{}, err
	}
	return s.view(profileID, p), nil
}

// CancelReminder disarms the reminder of a prescription. A handle that is
// no longer armed is ignored and reported as not canceled.
func (s *Service) CancelReminder(ctx context.Context, profileID, id string, handle reminder.Handle) (bool, error) {
	if _, err := s.find(ctx, profileID, id); err != nil {
		return false, err
	}
	return s.cancel(profileID, id, handle), nil
}

func (s *Service) cancel(profileID, id string, handle reminder.Handle) bool {
	err := s.scheduler.Cancel(profileID, id, handle)
	if errors.Is(err, apperr.ErrStaleHandle) {
		return false
	}
	return err == nil
}

func (s *Service) find(ctx context.Context, profileID, id string) (profile.Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := store.LoadList[profile.Prescription](ctx, s.store, profileID, store.KeyPrescriptions)
	if err != nil {
		return profile.Prescription{}, err
	}
	for _, p := range items {
		if p.ID == id {
			return p, nil
		}
	}
	return profile.Prescription{}, fmt.Errorf("prescription %s: %w", id, apperr.ErrNotFound)
}

func (s *Service) mutatePrescription(ctx context.Context, profileID, id string, apply func(*profile.Prescription) error) (profile.Prescription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := store.LoadList[profile.Prescription](ctx, s.store, profileID, store.KeyPrescriptions)
	if err != nil {
		return profile.Prescription{}, err
	}
	for i := range items {
		if items[i].ID != id {
			continue
		}
		if err := apply(&items[i]); err != nil {
			return profile.Prescription{}, err
		}
		if err := s.store.Save(ctx, profileID, store.KeyPrescriptions, items); err != nil {
			return profile.Prescription{}, err
		}
		return items[i], nil
	}
	return profile.Prescription{}, fmt.Errorf("prescription %s: %w", id, apperr.ErrNotFound)
}

func (s *Service) view(profileID string, p profile.Prescription) PrescriptionView {
	v := PrescriptionView{Prescription: p}
	if armed, ok := s.scheduler.Active(profileID, p.ID); ok {
		v.Reminder = &armed
	}
	return v
}

func validateContact(in ContactInput) error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Phone) == "" {
		return apperr.Validation("contact name and phone are required")
	}
	return nil
}

func validateTime(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw != "" && !profile.ValidClockTime(raw) {
		return apperr.Validation("time %q is not HH:MM", raw)
	}
	return nil
}
