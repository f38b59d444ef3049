package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/db"
	"github.com/kevin-ogleconic-com/wheeltrack-alignment-hub/internal/model"
)

type Store struct {
	db *db.Store
}

func NewStore(store *db.Store) *Store {
	return &Store{db: store}
}

const userColumns = `id, email, password_hash, first_name, last_name, created_at, updated_at`

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Pool.Ping(ctx)
}

func (s *Store) CreateUser(ctx context.Context, user model.User, role model.Role) (model.User, error) {
	var created model.User
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO users (email, password_hash, first_name, last_name)
			VALUES ($1, $2, $3, $4)
			RETURNING `+userColumns, user.Email, user.PasswordHash, user.FirstName, user.LastName)
		var err error
		created, err = scanUser(row)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, created.ID, string(role))
		return err
	})
	return created, translate(err)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	return user, translate(err)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	user, err := scanUser(row)
	return user, translate(err)
}

func (s *Store) GetRole(ctx context.Context, userID string) (model.Role, error) {
	var role string
	err := s.db.Pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RoleStandardUser, nil
	}
	if err != nil {
		return "", translate(err)
	}
	parsed, ok := model.ParseRole(role)
	if !ok {
		return model.RoleStandardUser, nil
	}
	return parsed, nil
}

func (s *Store) SetRole(ctx context.Context, userID string, role model.Role) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role
	`, userID, string(role))
	return translate(err)
}

func (s *Store) ListUsers(ctx context.Context) ([]model.UserWithRole, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.created_at, u.updated_at,
		       COALESCE(r.role, 'standard_user')
		FROM users u
		LEFT JOIN user_roles r ON r.user_id = u.id
		ORDER BY u.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.UserWithRole
	for rows.Next() {
		var item model.UserWithRole
		var role string
		if err := rows.Scan(&item.ID, &item.Email, &item.PasswordHash, &item.FirstName, &item.LastName, &item.CreatedAt, &item.UpdatedAt, &role); err != nil {
			return nil, err
		}
		item.Role = model.Role(role)
		users = append(users, item)
	}
	return users, rows.Err()
}

func (s *Store) CreateRefreshSession(ctx context.Context, session model.RefreshSession) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO refresh_token_sessions (id, user_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.UserID, session.TokenHash, session.CreatedAt, session.ExpiresAt, session.RevokedAt, session.UserAgent, session.IPAddress)
	return translate(err)
}

func (s *Store) GetRefreshSession(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	var session model.RefreshSession
	row := s.db.Pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash, created_at, expires_at, revoked_at, user_agent, ip_address
		FROM refresh_token_sessions
		WHERE token_hash = $1
	`, tokenHash)
	err := row.Scan(&session.ID, &session.UserID, &session.TokenHash, &session.CreatedAt, &session.ExpiresAt, &session.RevokedAt, &session.UserAgent, &session.IPAddress)
	return session, translate(err)
}

func (s *Store) RevokeRefreshSession(ctx context.Context, sessionID string, revokedAt time.Time) error {
	_, err := s.db.Pool.Exec(ctx, `UPDATE refresh_token_sessions SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`, revokedAt, sessionID)
	return err
}

func (s *Store) DeleteStaleRefreshSessions(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM refresh_token_sessions WHERE expires_at < $1 OR revoked_at IS NOT NULL`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deviceColumns = `id, uid_96bit, device_name, owner_user_id, is_active, last_authenticated_at, assigned_at, created_at, updated_at`

func (s *Store) CreateDevice(ctx context.Context, device model.Device) (model.Device, error) {
	row := s.db.Pool.QueryRow(ctx, `
		INSERT INTO device_uids (uid_96bit, device_name, owner_user_id, is_active, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+deviceColumns, device.UID, device.Name, device.OwnerUserID, device.Active, device.AssignedAt)
	created, err := scanDevice(row)
	return created, translate(err)
}

func (s *Store) GetDevice(ctx context.Context, deviceID string) (model.Device, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM device_uids WHERE id = $1`, deviceID)
	device, err := scanDevice(row)
	return device, translate(err)
}

func (s *Store) GetDeviceByUID(ctx context.Context, uid string) (model.Device, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM device_uids WHERE uid_96bit = $1`, uid)
	device, err := scanDevice(row)
	return device, translate(err)
}

func (s *Store) ListDevices(ctx context.Context, ownerID string) ([]model.Device, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+deviceColumns+`
		FROM device_uids
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var devices []model.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, rows.Err()
}

func (s *Store) SetDeviceActive(ctx context.Context, deviceID string, active bool, at time.Time) (model.Device, error) {
	row := s.db.Pool.QueryRow(ctx, `
		UPDATE device_uids
		SET is_active = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+deviceColumns, active, at, deviceID)
	device, err := scanDevice(row)
	return device, translate(err)
}

func (s *Store) DeleteDevice(ctx context.Context, deviceID string) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM device_uids WHERE id = $1`, deviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) TouchDeviceAuthenticated(ctx context.Context, deviceID string, at time.Time) error {
	_, err := s.db.Pool.Exec(ctx, `
		UPDATE device_uids
		SET last_authenticated_at = $1, updated_at = $1
		WHERE id = $2
	`, at, deviceID)
	return err
}

func (s *Store) AssignDevice(ctx context.Context, uid, userID string, at time.Time, check AssignCheck) (model.Device, error) {
	var result model.Device
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+deviceColumns+` FROM device_uids WHERE uid_96bit = $1 FOR UPDATE`, uid)
		device, err := scanDevice(row)
		if err != nil {
			return err
		}
		assign, err := check(device)
		if err != nil {
			return err
		}
		if !assign {
			result = device
			return nil
		}
		row = tx.QueryRow(ctx, `
			UPDATE device_uids
			SET owner_user_id = $1, assigned_at = $2, updated_at = $2
			WHERE id = $3
			RETURNING `+deviceColumns, userID, at, device.ID)
		result, err = scanDevice(row)
		return err
	})
	return result, translate(err)
}

const recordColumns = `id, user_id, vehicle_make, vehicle_model, vehicle_year, vin, license_plate, mileage,
	customer_name, customer_phone, alignment_type, completion_status, technician_name, service_advisor,
	work_order_number, notes, measurements, before_measurements, after_measurements, specifications,
	created_at, updated_at`

func (s *Store) CreateRecord(ctx context.Context, record model.AlignmentRecord) (model.AlignmentRecord, error) {
	measurements, err := json.Marshal(record.Measurements)
	if err != nil {
		return model.AlignmentRecord{}, err
	}
	row := s.db.Pool.QueryRow(ctx, `
		INSERT INTO alignment_records (
			user_id, vehicle_make, vehicle_model, vehicle_year, vin, license_plate, mileage,
			customer_name, customer_phone, alignment_type, completion_status, technician_name,
			service_advisor, work_order_number, notes, measurements, before_measurements,
			after_measurements, specifications
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING `+recordColumns,
		record.UserID, record.VehicleMake, record.VehicleModel, record.VehicleYear, record.VIN,
		record.LicensePlate, record.Mileage, record.CustomerName, record.CustomerPhone,
		record.AlignmentType, string(record.CompletionStatus), record.TechnicianName,
		record.ServiceAdvisor, record.WorkOrderNumber, record.Notes, measurements,
		nullJSON(record.BeforeMeasurements), nullJSON(record.AfterMeasurements), nullJSON(record.Specifications))
	created, err := scanRecord(row)
	return created, translate(err)
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (model.AlignmentRecord, error) {
	row := s.db.Pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM alignment_records WHERE id = $1`, recordID)
	record, err := scanRecord(row)
	return record, translate(err)
}

func (s *Store) ListRecords(ctx context.Context, userID string, limit int) ([]model.AlignmentRecord, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM alignment_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT NULLIF($2::int, 0)
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.AlignmentRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *Store) ListAllRecords(ctx context.Context, limit int) ([]model.RecordWithOwner, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+prefixed("r.", recordColumns)+`, u.email
		FROM alignment_records r
		JOIN users u ON u.id = r.user_id
		ORDER BY r.created_at DESC
		LIMIT NULLIF($1::int, 0)
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.RecordWithOwner
	for rows.Next() {
		var item model.RecordWithOwner
		var measurements, before, after, specs []byte
		var status string
		if err := rows.Scan(append(recordTargets(&item.AlignmentRecord, &status, &measurements, &before, &after, &specs), &item.OwnerEmail)...); err != nil {
			return nil, err
		}
		if err := fillRecord(&item.AlignmentRecord, status, measurements, before, after, specs); err != nil {
			return nil, err
		}
		records = append(records, item)
	}
	return records, rows.Err()
}

func (s *Store) DeleteRecord(ctx context.Context, recordID string) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM alignment_records WHERE id = $1`, recordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const specColumns = `id, make, model, year, trim_level,
	front_toe_min, front_toe_max, rear_toe_min, rear_toe_max,
	front_camber_min, front_camber_max, rear_camber_min, rear_camber_max,
	front_caster_min, front_caster_max, created_at, updated_at`

func (s *Store) CreateSpecification(ctx context.Context, spec model.VehicleSpecification) (model.VehicleSpecification, error) {
	row := s.db.Pool.QueryRow(ctx, `
		INSERT INTO vehicle_specifications (
			make, model, year, trim_level,
			front_toe_min, front_toe_max, rear_toe_min, rear_toe_max,
			front_camber_min, front_camber_max, rear_camber_min, rear_camber_max,
			front_caster_min, front_caster_max
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+specColumns,
		spec.Make, spec.Model, spec.Year, spec.TrimLevel,
		spec.FrontToe.Min, spec.FrontToe.Max, spec.RearToe.Min, spec.RearToe.Max,
		spec.FrontCamber.Min, spec.FrontCamber.Max, spec.RearCamber.Min, spec.RearCamber.Max,
		spec.FrontCaster.Min, spec.FrontCaster.Max)
	created, err := scanSpec(row)
	return created, translate(err)
}

func (s *Store) ListSpecifications(ctx context.Context, filter SpecFilter) ([]model.VehicleSpecification, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT `+specColumns+`
		FROM vehicle_specifications
		WHERE ($1::text = '' OR lower(make) = lower($1::text))
		  AND ($2::text = '' OR lower(model) = lower($2::text))
		ORDER BY make, model, year DESC
	`, filter.Make, filter.Model)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []model.VehicleSpecification
	for rows.Next() {
		spec, err := scanSpec(rows)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)
	return user, err
}

func scanDevice(row pgx.Row) (model.Device, error) {
	var device model.Device
	err := row.Scan(
		&device.ID,
		&device.UID,
		&device.Name,
		&device.OwnerUserID,
		&device.Active,
		&device.LastAuthenticatedAt,
		&device.AssignedAt,
		&device.CreatedAt,
		&device.UpdatedAt,
	)
	return device, err
}

func scanRecord(row pgx.Row) (model.AlignmentRecord, error) {
	var record model.AlignmentRecord
	var measurements, before, after, specs []byte
	var status string
	if err := row.Scan(recordTargets(&record, &status, &measurements, &before, &after, &specs)...); err != nil {
		return record, err
	}
	err := fillRecord(&record, status, measurements, before, after, specs)
	return record, err
}

func recordTargets(record *model.AlignmentRecord, status *string, measurements, before, after, specs *[]byte) []any {
	return []any{
		&record.ID, &record.UserID, &record.VehicleMake, &record.VehicleModel, &record.VehicleYear,
		&record.VIN, &record.LicensePlate, &record.Mileage, &record.CustomerName, &record.CustomerPhone,
		&record.AlignmentType, status, &record.TechnicianName, &record.ServiceAdvisor,
		&record.WorkOrderNumber, &record.Notes, measurements, before, after, specs,
		&record.CreatedAt, &record.UpdatedAt,
	}
}

func fillRecord(record *model.AlignmentRecord, status string, measurements, before, after, specs []byte) error {
	record.CompletionStatus = model.CompletionStatus(status)
	if len(measurements) > 0 {
		if err := json.Unmarshal(measurements, &record.Measurements); err != nil {
			return err
		}
	}
	record.BeforeMeasurements = before
	record.AfterMeasurements = after
	record.Specifications = specs
	return nil
}

func scanSpec(row pgx.Row) (model.VehicleSpecification, error) {
	var spec model.VehicleSpecification
	err := row.Scan(
		&spec.ID, &spec.Make, &spec.Model, &spec.Year, &spec.TrimLevel,
		&spec.FrontToe.Min, &spec.FrontToe.Max, &spec.RearToe.Min, &spec.RearToe.Max,
		&spec.FrontCamber.Min, &spec.FrontCamber.Max, &spec.RearCamber.Min, &spec.RearCamber.Max,
		&spec.FrontCaster.Min, &spec.FrontCaster.Max, &spec.CreatedAt, &spec.UpdatedAt,
	)
	return spec, err
}

func nullJSON(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = prefix + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrConflict
		case "23503", "22P02":
			return ErrNotFound
		}
	}
	return err
}
