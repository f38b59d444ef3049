package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

// MemoryStore keeps everything in process memory. It backs the hub when no
// DATABASE_URL is configured and is used by the HTTP tests.
type MemoryStore struct {
	mu       sync.Mutex
	seq      int64
	users    map[string]model.User
	roles    map[string]model.Role
	sessions map[string]model.RefreshSession
	devices  map[string]model.Device
	records  map[string]model.AlignmentRecord
	specs    map[string]model.VehicleSpecification
	order    map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]model.User),
		roles:    make(map[string]model.Role),
		sessions: make(map[string]model.RefreshSession),
		devices:  make(map[string]model.Device),
		records:  make(map[string]model.AlignmentRecord),
		specs:    make(map[string]model.VehicleSpecification),
		order:    make(map[string]int64),
	}
}

// stamp records insertion order so rows created within the same clock tick
// still sort newest first.
func (s *MemoryStore) stamp(id string) {
	s.seq++
	s.order[id] = s.seq
}

func (s *MemoryStore) newer(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return s.order[aID] > s.order[bID]
}

func (s *MemoryStore) CreateUser(_ context.Context, user model.User, role model.Role) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == user.Email {
			return model.User{}, ErrConflict
		}
	}
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	s.roles[user.ID] = role
	s.stamp(user.ID)
	return user, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, ErrNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, userID string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetRole(_ context.Context, userID string) (model.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if role, ok := s.roles[userID]; ok {
		return role, nil
	}
	return model.RoleStandardUser, nil
}

func (s *MemoryStore) SetRole(_ context.Context, userID string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	s.roles[userID] = role
	return nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]model.UserWithRole, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]model.UserWithRole, 0, len(s.users))
	for id, user := range s.users {
		role, ok := s.roles[id]
		if !ok {
			role = model.RoleStandardUser
		}
		users = append(users, model.UserWithRole{User: user, Role: role})
	}
	sort.Slice(users, func(i, j int) bool {
		return s.newer(users[i].ID, users[i].CreatedAt, users[j].ID, users[j].CreatedAt)
	})
	return users, nil
}

func (s *MemoryStore) CreateRefreshSession(_ context.Context, session model.RefreshSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.TokenHash]; ok {
		return ErrConflict
	}
	s.sessions[session.TokenHash] = session
	return nil
}

func (s *MemoryStore) GetRefreshSession(_ context.Context, tokenHash string) (model.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[tokenHash]
	if !ok {
		return model.RefreshSession{}, ErrNotFound
	}
	return session, nil
}

func (s *MemoryStore) RevokeRefreshSession(_ context.Context, sessionID string, revokedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for hash, session := range s.sessions {
		if session.ID == sessionID && session.RevokedAt == nil {
			at := revokedAt
			session.RevokedAt = &at
			s.sessions[hash] = session
		}
	}
	return nil
}

func (s *MemoryStore) DeleteStaleRefreshSessions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for hash, session := range s.sessions {
		if session.ExpiresAt.Before(now) || session.RevokedAt != nil {
			delete(s.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}

func (s *MemoryStore) CreateDevice(_ context.Context, device model.Device) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.devices {
		if existing.UID == device.UID {
			return model.Device{}, ErrConflict
		}
	}
	if device.OwnerUserID != nil {
		if _, ok := s.users[*device.OwnerUserID]; !ok {
			return model.Device{}, ErrNotFound
		}
	}
	now := time.Now().UTC()
	device.ID = uuid.NewString()
	device.CreatedAt = now
	device.UpdatedAt = now
	s.devices[device.ID] = device
	s.stamp(device.ID)
	return device, nil
}

func (s *MemoryStore) GetDevice(_ context.Context, deviceID string) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	device, ok := s.devices[deviceID]
	if !ok {
		return model.Device{}, ErrNotFound
	}
	return device, nil
}

func (s *MemoryStore) GetDeviceByUID(_ context.Context, uid string) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	device, ok := s.deviceByUID(uid)
	if !ok {
		return model.Device{}, ErrNotFound
	}
	return device, nil
}

func (s *MemoryStore) deviceByUID(uid string) (model.Device, bool) {
	for _, device := range s.devices {
		if device.UID == uid {
			return device, true
		}
	}
	return model.Device{}, false
}

func (s *MemoryStore) ListDevices(_ context.Context, ownerID string) ([]model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var devices []model.Device
	for _, device := range s.devices {
		if device.OwnerUserID != nil && *device.OwnerUserID == ownerID {
			devices = append(devices, device)
		}
	}
	sort.Slice(devices, func(i, j int) bool {
		return s.newer(devices[i].ID, devices[i].CreatedAt, devices[j].ID, devices[j].CreatedAt)
	})
	return devices, nil
}

func (s *MemoryStore) SetDeviceActive(_ context.Context, deviceID string, active bool, at time.Time) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	device, ok := s.devices[deviceID]
	if !ok {
		return model.Device{}, ErrNotFound
	}
	device.Active = active
	device.UpdatedAt = at
	s.devices[deviceID] = device
	return device, nil
}

func (s *MemoryStore) DeleteDevice(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.devices[deviceID]; !ok {
		return ErrNotFound
	}
	delete(s.devices, deviceID)
	delete(s.order, deviceID)
	return nil
}

func (s *MemoryStore) TouchDeviceAuthenticated(_ context.Context, deviceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	device, ok := s.devices[deviceID]
	if !ok {
		return ErrNotFound
	}
	device.LastAuthenticatedAt = &at
	device.UpdatedAt = at
	s.devices[deviceID] = device
	return nil
}

func (s *MemoryStore) AssignDevice(_ context.Context, uid, userID string, at time.Time, check AssignCheck) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	device, ok := s.deviceByUID(uid)
	if !ok {
		return model.Device{}, ErrNotFound
	}
	assign, err := check(device)
	if err != nil {
		return model.Device{}, err
	}
	if !assign {
		return device, nil
	}
	owner := userID
	assignedAt := at
	device.OwnerUserID = &owner
	device.AssignedAt = &assignedAt
	device.UpdatedAt = at
	s.devices[device.ID] = device
	return device, nil
}

func (s *MemoryStore) CreateRecord(_ context.Context, record model.AlignmentRecord) (model.AlignmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[record.UserID]; !ok {
		return model.AlignmentRecord{}, ErrNotFound
	}
	now := time.Now().UTC()
	record.ID = uuid.NewString()
	record.CreatedAt = now
	record.UpdatedAt = now
	s.records[record.ID] = record
	s.stamp(record.ID)
	return record, nil
}

func (s *MemoryStore) GetRecord(_ context.Context, recordID string) (model.AlignmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[recordID]
	if !ok {
		return model.AlignmentRecord{}, ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) ListRecords(_ context.Context, userID string, limit int) ([]model.AlignmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []model.AlignmentRecord
	for _, record := range s.records {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return s.newer(records[i].ID, records[i].CreatedAt, records[j].ID, records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) ListAllRecords(_ context.Context, limit int) ([]model.RecordWithOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]model.RecordWithOwner, 0, len(s.records))
	for _, record := range s.records {
		records = append(records, model.RecordWithOwner{
			AlignmentRecord: record,
			OwnerEmail:      s.users[record.UserID].Email,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return s.newer(records[i].ID, records[i].CreatedAt, records[j].ID, records[j].CreatedAt)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) DeleteRecord(_ context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[recordID]; !ok {
		return ErrNotFound
	}
	delete(s.records, recordID)
	delete(s.order, recordID)
	return nil
}

func (s *MemoryStore) CreateSpecification(_ context.Context, spec model.VehicleSpecification) (model.VehicleSpecification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	spec.ID = uuid.NewString()
	spec.CreatedAt = now
	spec.UpdatedAt = now
	s.specs[spec.ID] = spec
	return spec, nil
}

func (s *MemoryStore) ListSpecifications(_ context.Context, filter SpecFilter) ([]model.VehicleSpecification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var specs []model.VehicleSpecification
	for _, spec := range s.specs {
		if filter.Make != "" && !strings.EqualFold(spec.Make, filter.Make) {
			continue
		}
		if filter.Model != "" && !strings.EqualFold(spec.Model, filter.Model) {
			continue
		}
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		if specs[i].Make != specs[j].Make {
			return specs[i].Make < specs[j].Make
		}
		if specs[i].Model != specs[j].Model {
			return specs[i].Model < specs[j].Model
		}
		return specs[i].Year > specs[j].Year
	})
	return specs, nil
}

var (
	_ Repository = (*MemoryStore)(nil)
	_ Repository = (*Store)(nil)
)
