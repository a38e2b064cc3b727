package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"legal-clinic/internal/clinic"
	"legal-clinic/internal/codes"
	"legal-clinic/pkg/utils"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, storageErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err)
	}
	return n > 0, nil
}

// --- staff ---

type pgStaff struct{ db utils.DBTX }

func (r pgStaff) Get(ctx context.Context, id string) (clinic.InternalUser, bool, error) {
	const q = `
SELECT id, first_name, last_name, email, role, active
FROM internal_users
WHERE id = $1
`
	var u clinic.InternalUser
	err := r.db.QueryRowContext(ctx, q, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &u.Active)
	if err != nil {
		if noRows(err) {
			return clinic.InternalUser{}, false, nil
		}
		return clinic.InternalUser{}, false, storageErr(err)
	}
	return u, true, nil
}

// --- clients ---

type pgClients struct{ db utils.DBTX }

const clientColumns = `id, id_type, first_name, last_name, age, gender, birth_date, nationality, ethnicity,
  province, city, phone, email, address, sector, zone, reference_name, reference_phone,
  academic_instruction, profession, marital_status, dependents, income_level, family_income,
  housing_type, disability, disability_percentage, created_at`

func (r pgClients) Get(ctx context.Context, id string) (clinic.Client, bool, error) {
	q := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	var c clinic.Client
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&c.ID, &c.IDType, &c.FirstName, &c.LastName, &c.Age, &c.Gender, &c.BirthDate, &c.Nationality, &c.Ethnicity,
		&c.Province, &c.City, &c.Phone, &c.Email, &c.Address, &c.Sector, &c.Zone, &c.ReferenceName, &c.ReferencePhone,
		&c.AcademicInstruction, &c.Profession, &c.MaritalStatus, &c.Dependents, &c.IncomeLevel, &c.FamilyIncome,
		&c.HousingType, &c.Disability, &c.DisabilityPercentage, &c.CreatedAt,
	)
	if err != nil {
		if noRows(err) {
			return clinic.Client{}, false, nil
		}
		return clinic.Client{}, false, storageErr(err)
	}
	return c, true, nil
}

func (r pgClients) Insert(ctx context.Context, c clinic.Client) error {
	q := `INSERT INTO clients (` + clientColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28
)`
	_, err := r.db.ExecContext(ctx, q,
		c.ID, c.IDType, c.FirstName, c.LastName, c.Age, c.Gender, c.BirthDate, c.Nationality, c.Ethnicity,
		c.Province, c.City, c.Phone, c.Email, c.Address, c.Sector, c.Zone, c.ReferenceName, c.ReferencePhone,
		c.AcademicInstruction, c.Profession, c.MaritalStatus, c.Dependents, c.IncomeLevel, c.FamilyIncome,
		c.HousingType, c.Disability, c.DisabilityPercentage, c.CreatedAt,
	)
	return storageErr(err)
}

func (r pgClients) Delete(ctx context.Context, id string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id))
}

// --- consultations ---

type pgConsultations struct{ db utils.DBTX }

const consultationColumns = `code, internal_id, client_id, client_type, date, end_date, subject, lawyer, notes,
  office, topic, service, referral_source, complexity, status, case_status, type,
  social_work_required, social_work_mandatory, COALESCE(alert_note, ''), created_at, updated_at`

func scanConsultation(row rowScanner) (clinic.Consultation, error) {
	var c clinic.Consultation
	err := row.Scan(
		&c.Code, &c.InternalID, &c.ClientID, &c.ClientType, &c.Date, &c.EndDate, &c.Subject, &c.Lawyer, &c.Notes,
		&c.Office, &c.Topic, &c.Service, &c.ReferralSource, &c.Complexity, &c.Status, &c.CaseStatus, &c.Type,
		&c.SocialWorkRequired, &c.SocialWorkMandatory, &c.AlertNote, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r pgConsultations) Get(ctx context.Context, code string) (clinic.Consultation, bool, error) {
	q := `SELECT ` + consultationColumns + ` FROM consultations WHERE code = $1`
	c, err := scanConsultation(r.db.QueryRowContext(ctx, q, code))
	if err != nil {
		if noRows(err) {
			return clinic.Consultation{}, false, nil
		}
		return clinic.Consultation{}, false, storageErr(err)
	}
	return c, true, nil
}

func (r pgConsultations) MaxCode(ctx context.Context) (string, error) {
	// Compare the leading digits numerically, as codes.SequenceOf does, and
	// include the high-water mark left by deleted consultations.
	const q = `
SELECT GREATEST(
  COALESCE((
    SELECT max(substring(code FROM '^AT-([0-9]{1,18})')::bigint)
    FROM consultations
    WHERE code ~ '^AT-[0-9]'
  ), 0),
  COALESCE((SELECT last_value FROM code_series WHERE series = $1), 0)
)
`
	var n int64
	if err := r.db.QueryRowContext(ctx, q, codes.Consultation.Key()).Scan(&n); err != nil {
		return "", storageErr(err)
	}
	return consultationCodeAt(n), nil
}

func (r pgConsultations) Insert(ctx context.Context, c clinic.Consultation) error {
	const q = `
INSERT INTO consultations (
  code, internal_id, client_id, client_type, date, end_date, subject, lawyer, notes,
  office, topic, service, referral_source, complexity, status, case_status, type,
  social_work_required, social_work_mandatory, alert_note, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NULLIF($20, ''),$21,$22
)
`
	_, err := r.db.ExecContext(ctx, q,
		c.Code, c.InternalID, c.ClientID, c.ClientType, c.Date, c.EndDate, c.Subject, c.Lawyer, c.Notes,
		c.Office, c.Topic, c.Service, c.ReferralSource, c.Complexity, c.Status, c.CaseStatus, c.Type,
		c.SocialWorkRequired, c.SocialWorkMandatory, c.AlertNote, c.CreatedAt, c.UpdatedAt,
	)
	return storageErr(err)
}

// Update rewrites every mutable column. code, alert_note and created_at are fixed.
func (r pgConsultations) Update(ctx context.Context, c clinic.Consultation) (bool, error) {
	const q = `
UPDATE consultations SET
  internal_id = $2, client_id = $3, client_type = $4, date = $5, end_date = $6, subject = $7,
  lawyer = $8, notes = $9, office = $10, topic = $11, service = $12, referral_source = $13,
  complexity = $14, status = $15, case_status = $16, type = $17,
  social_work_required = $18, social_work_mandatory = $19, updated_at = $20
WHERE code = $1
`
	return affected(r.db.ExecContext(ctx, q,
		c.Code, c.InternalID, c.ClientID, c.ClientType, c.Date, c.EndDate, c.Subject,
		c.Lawyer, c.Notes, c.Office, c.Topic, c.Service, c.ReferralSource,
		c.Complexity, c.Status, c.CaseStatus, c.Type,
		c.SocialWorkRequired, c.SocialWorkMandatory, c.UpdatedAt,
	))
}

// Delete removes the consultation and raises the series high-water mark so
// its code is never issued again.
func (r pgConsultations) Delete(ctx context.Context, code string) (bool, error) {
	ok, err := affected(r.db.ExecContext(ctx, `DELETE FROM consultations WHERE code = $1`, code))
	if err != nil || !ok {
		return ok, err
	}
	const q = `
INSERT INTO code_series (series, last_value)
VALUES ($1, $2)
ON CONFLICT (series) DO UPDATE
SET last_value = GREATEST(code_series.last_value, EXCLUDED.last_value)
`
	if _, err := r.db.ExecContext(ctx, q, codes.Consultation.Key(), codes.SequenceOf(codes.ConsultationPrefix, code)); err != nil {
		return false, storageErr(err)
	}
	return true, nil
}

func (r pgConsultations) List(ctx context.Context, f ConsultationFilter) ([]clinic.Consultation, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Subject != "" {
		add("subject = $%d", f.Subject)
	}
	if !f.From.IsZero() {
		add("date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("date < $%d", f.To)
	}

	q := `SELECT ` + consultationColumns + ` FROM consultations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY length(code), code`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []clinic.Consultation
	for rows.Next() {
		c, err := scanConsultation(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		out = append(out, c)
	}
	return out, storageErr(rows.Err())
}

// --- evidence ---

type pgEvidence struct{ db utils.DBTX }

func (r pgEvidence) Insert(ctx context.Context, e clinic.Evidence) error {
	const q = `
INSERT INTO evidences (id, internal_id, consultation_code, name, document_type, url, date, file)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`
	_, err := r.db.ExecContext(ctx, q, e.ID, e.InternalID, e.ConsultationCode, e.Name, e.DocumentType, e.URL, e.Date, e.File)
	return storageErr(err)
}

func (r pgEvidence) ListByConsultation(ctx context.Context, code string) ([]clinic.Evidence, error) {
	const q = `
SELECT id, internal_id, consultation_code, name, document_type, url, date, file
FROM evidences
WHERE consultation_code = $1
ORDER BY date, id
`
	rows, err := r.db.QueryContext(ctx, q, code)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []clinic.Evidence
	for rows.Next() {
		var e clinic.Evidence
		if err := rows.Scan(&e.ID, &e.InternalID, &e.ConsultationCode, &e.Name, &e.DocumentType, &e.URL, &e.Date, &e.File); err != nil {
			return nil, storageErr(err)
		}
		out = append(out, e)
	}
	return out, storageErr(rows.Err())
}

// --- social work ---

type pgSocialWork struct{ db utils.DBTX }

const socialWorkColumns = `process_number, consultation_code, entry_date, entry_day, status, status_observations,
  user_requests, referral_area_requests, violence_episodes, complaints,
  disability_type, disability_percentage, has_disability_card, observations, created_at, updated_at`

func scanSocialWork(row rowScanner) (clinic.SocialWorkCase, error) {
	var c clinic.SocialWorkCase
	err := row.Scan(
		&c.ProcessNumber, &c.ConsultationCode, &c.EntryDate, &c.EntryDay, &c.Status, &c.StatusObservations,
		&c.UserRequests, &c.ReferralAreaRequests, &c.ViolenceEpisodes, &c.Complaints,
		&c.DisabilityType, &c.DisabilityPercentage, &c.HasDisabilityCard, &c.Observations, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r pgSocialWork) getBy(ctx context.Context, column, key string) (clinic.SocialWorkCase, bool, error) {
	q := `SELECT ` + socialWorkColumns + ` FROM social_work_cases WHERE ` + column + ` = $1`
	c, err := scanSocialWork(r.db.QueryRowContext(ctx, q, key))
	if err != nil {
		if noRows(err) {
			return clinic.SocialWorkCase{}, false, nil
		}
		return clinic.SocialWorkCase{}, false, storageErr(err)
	}
	return c, true, nil
}

func (r pgSocialWork) Get(ctx context.Context, number string) (clinic.SocialWorkCase, bool, error) {
	return r.getBy(ctx, "process_number", number)
}

func (r pgSocialWork) GetByConsultation(ctx context.Context, code string) (clinic.SocialWorkCase, bool, error) {
	return r.getBy(ctx, "consultation_code", code)
}

func (r pgSocialWork) CountOnDay(ctx context.Context, dateKey string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM social_work_cases WHERE entry_day = $1`, dateKey).Scan(&n); err != nil {
		return 0, storageErr(err)
	}
	return n, nil
}

func (r pgSocialWork) Insert(ctx context.Context, c clinic.SocialWorkCase) error {
	q := `INSERT INTO social_work_cases (` + socialWorkColumns + `) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16
)`
	_, err := r.db.ExecContext(ctx, q,
		c.ProcessNumber, c.ConsultationCode, c.EntryDate, c.EntryDay, string(c.Status), c.StatusObservations,
		c.UserRequests, c.ReferralAreaRequests, c.ViolenceEpisodes, c.Complaints,
		c.DisabilityType, c.DisabilityPercentage, c.HasDisabilityCard, c.Observations, c.CreatedAt, c.UpdatedAt,
	)
	return storageErr(err)
}

func (r pgSocialWork) Update(ctx context.Context, c clinic.SocialWorkCase) (bool, error) {
	const q = `
UPDATE social_work_cases SET
  status = $2, status_observations = $3, user_requests = $4, referral_area_requests = $5,
  violence_episodes = $6, complaints = $7, disability_type = $8, disability_percentage = $9,
  has_disability_card = $10, observations = $11, updated_at = $12
WHERE process_number = $1
`
	return affected(r.db.ExecContext(ctx, q,
		c.ProcessNumber, string(c.Status), c.StatusObservations, c.UserRequests, c.ReferralAreaRequests,
		c.ViolenceEpisodes, c.Complaints, c.DisabilityType, c.DisabilityPercentage,
		c.HasDisabilityCard, c.Observations, c.UpdatedAt,
	))
}

func (r pgSocialWork) List(ctx context.Context, f SocialWorkFilter) ([]clinic.SocialWorkCase, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if !f.EnteredFrom.IsZero() {
		args = append(args, f.EnteredFrom)
		where = append(where, fmt.Sprintf("entry_date >= $%d", len(args)))
	}
	if !f.EnteredTo.IsZero() {
		args = append(args, f.EnteredTo)
		where = append(where, fmt.Sprintf("entry_date < $%d", len(args)))
	}

	q := `SELECT ` + socialWorkColumns + ` FROM social_work_cases`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY process_number`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []clinic.SocialWorkCase
	for rows.Next() {
		c, err := scanSocialWork(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		out = append(out, c)
	}
	return out, storageErr(rows.Err())
}

// --- sectors ---

type pgSectors struct{ db utils.DBTX }

func (r pgSectors) List(ctx context.Context) ([]clinic.Sector, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, zone FROM sectors ORDER BY name`)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []clinic.Sector
	for rows.Next() {
		var s clinic.Sector
		if err := rows.Scan(&s.ID, &s.Name, &s.Zone); err != nil {
			return nil, storageErr(err)
		}
		out = append(out, s)
	}
	return out, storageErr(rows.Err())
}

func (r pgSectors) Get(ctx context.Context, id string) (clinic.Sector, bool, error) {
	var s clinic.Sector
	err := r.db.QueryRowContext(ctx, `SELECT id, name, zone FROM sectors WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.Zone)
	if err != nil {
		if noRows(err) {
			return clinic.Sector{}, false, nil
		}
		return clinic.Sector{}, false, storageErr(err)
	}
	return s, true, nil
}

func (r pgSectors) ZoneOf(ctx context.Context, name string) (string, bool, error) {
	var zone string
	err := r.db.QueryRowContext(ctx, `SELECT zone FROM sectors WHERE name = $1`, name).Scan(&zone)
	if err != nil {
		if noRows(err) {
			return "", false, nil
		}
		return "", false, storageErr(err)
	}
	return zone, true, nil
}

func (r pgSectors) Insert(ctx context.Context, s clinic.Sector) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sectors (id, name, zone) VALUES ($1,$2,$3)`, s.ID, s.Name, s.Zone)
	return storageErr(err)
}

func (r pgSectors) Update(ctx context.Context, s clinic.Sector) (bool, error) {
	return affected(r.db.ExecContext(ctx, `UPDATE sectors SET name = $2, zone = $3 WHERE id = $1`, s.ID, s.Name, s.Zone))
}

func (r pgSectors) Delete(ctx context.Context, id string) (bool, error) {
	return affected(r.db.ExecContext(ctx, `DELETE FROM sectors WHERE id = $1`, id))
}
