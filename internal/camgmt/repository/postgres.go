// Package repository is the persistence collaborator of the CA configuration
// registry: whole-entity reads and writes against PostgreSQL. It holds no
// state of its own and performs no validation — the registry is the
// authority; this layer only reports storage failures, wrapped with their
// query context.
package repository

import (
	"context"
	"time"

	"github.com/canopy-pki/canopy/internal/camgmt/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements registry.ConfStore against a pgx pool.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a store over an existing pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// LoadAll reads the complete configuration, table by table.
func (s *PostgresStore) LoadAll(ctx context.Context) (*model.CaConf, error) {
	conf := &model.CaConf{}

	if err := s.loadCas(ctx, conf); err != nil {
		return nil, err
	}
	if err := s.loadAliases(ctx, conf); err != nil {
		return nil, err
	}
	if err := s.loadSigners(ctx, conf); err != nil {
		return nil, err
	}
	if err := s.loadRequestorsUsers(ctx, conf); err != nil {
		return nil, err
	}
	if err := s.loadProfilesPublishers(ctx, conf); err != nil {
		return nil, err
	}
	if err := s.loadSceps(ctx, conf); err != nil {
		return nil, err
	}
	if err := s.loadAssociations(ctx, conf); err != nil {
		return nil, err
	}
	return conf, nil
}

func (s *PostgresStore) loadCas(ctx context.Context, conf *model.CaConf) error {
	const q = `
		SELECT id, name, status, sn_len,
		       cacert_uris, crl_uris, deltacrl_uris, ocsp_uris,
		       max_validity_seconds, signer_type, signer_conf, cert_pem,
		       crl_signer, responder, cmp_control,
		       permissions, duplicate_key, duplicate_subject, save_request,
		       validity_mode, expiration_period, num_crls,
		       keep_expired_cert_days, next_crl_no, extra_control,
		       revoked, rev_reason, rev_time, rev_inv_time
		FROM cas`
	rows, err := s.db.Query(ctx, q)
	if err != nil {
		return wrap("select cas", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ca          model.CaEntry
			status      string
			maxValidity int64
			permissions int64
			dupKey      int
			dupSubject  int
			vmode       string
			revoked     bool
			revReason   *int
			revTime     *time.Time
			revInvTime  *time.Time
		)
		err := rows.Scan(
			&ca.ID, &ca.Name, &status, &ca.SerialNoLen,
			&ca.Uris.CaCertURIs, &ca.Uris.CrlURIs, &ca.Uris.DeltaCrlURIs, &ca.Uris.OcspURIs,
			&maxValidity, &ca.SignerType, &ca.SignerConf, &ca.CertPEM,
			&ca.CrlSignerName, &ca.ResponderName, &ca.CmpControlName,
			&permissions, &dupKey, &dupSubject, &ca.SaveRequest,
			&vmode, &ca.ExpirationPeriodDays, &ca.NumCrls,
			&ca.KeepExpiredCertDays, &ca.NextCrlNo, &ca.ExtraControl,
			&revoked, &revReason, &revTime, &revInvTime,
		)
		if err != nil {
			return wrap("scan cas row", err)
		}
		ca.Status = model.CaStatus(status)
		ca.MaxValidity = time.Duration(maxValidity) * time.Second
		ca.Permissions = model.Permission(permissions)
		ca.DuplicateKeyMode = model.DuplicationMode(dupKey)
		ca.DuplicateSubjectMode = model.DuplicationMode(dupSubject)
		ca.ValidityMode = model.ValidityMode(vmode)
		if revoked {
			rev := &model.RevocationInfo{}
			if revReason != nil {
				rev.Reason = model.CRLReason(*revReason)
			}
			if revTime != nil {
				rev.RevokedAt = *revTime
			}
			if revInvTime != nil {
				rev.InvalidityAt = *revInvTime
			}
			ca.Revocation = rev
		}
		conf.Cas = append(conf.Cas, &ca)
	}
	return wrap("iterate cas rows", rows.Err())
}

func (s *PostgresStore) loadAliases(ctx context.Context, conf *model.CaConf) error {
	rows, err := s.db.Query(ctx, `SELECT name, ca_id FROM ca_aliases`)
	if err != nil {
		return wrap("select ca_aliases", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a model.CaAlias
		if err := rows.Scan(&a.Name, &a.CaID); err != nil {
			return wrap("scan ca_aliases row", err)
		}
		conf.Aliases = append(conf.Aliases, a)
	}
	return wrap("iterate ca_aliases rows", rows.Err())
}

func (s *PostgresStore) loadSigners(ctx context.Context, conf *model.CaConf) error {
	rows, err := s.db.Query(ctx, `SELECT name, type, conf, cert_pem FROM signers`)
	if err != nil {
		return wrap("select signers", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.SignerEntry
		if err := rows.Scan(&e.Name, &e.Type, &e.Conf, &e.CertPEM); err != nil {
			return wrap("scan signers row", err)
		}
		conf.Signers = append(conf.Signers, &e)
	}
	if err := rows.Err(); err != nil {
		return wrap("iterate signers rows", err)
	}

	rows, err = s.db.Query(ctx, `SELECT name, type, conf, cert_pem, crl_control FROM crl_signers`)
	if err != nil {
		return wrap("select crl_signers", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.CrlSignerEntry
		if err := rows.Scan(&e.Name, &e.Type, &e.Conf, &e.CertPEM, &e.CrlControl); err != nil {
			return wrap("scan crl_signers row", err)
		}
		conf.CrlSigners = append(conf.CrlSigners, &e)
	}
	if err := rows.Err(); err != nil {
		return wrap("iterate crl_signers rows", err)
	}

	rows, err = s.db.Query(ctx, `SELECT name, type, conf, cert_pem FROM responders`)
	if err != nil {
		return wrap("select responders", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.ResponderEntry
		if err := rows.Scan(&e.Name, &e.Type, &e.Conf, &e.CertPEM); err != nil {
			return wrap("scan responders row", err)
		}
		conf.Responders = append(conf.Responders, &e)
	}
	if err := rows.Err(); err != nil {
		return wrap("iterate responders rows", err)
	}

	rows, err = s.db.Query(ctx, `SELECT name, conf FROM cmp_controls`)
	if err != nil {
		return wrap("select cmp_controls", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.CmpControlEntry
		if err := rows.Scan(&e.Name, &e.Conf); err != nil {
			return wrap("scan cmp_controls row", err)
		}
		conf.CmpControls = append(conf.CmpControls, &e)
	}
	return wrap("iterate cmp_controls rows", rows.Err())
}

func (s *PostgresStore) loadRequestorsUsers(ctx context.Context, conf *model.CaConf) error {
	rows, err := s.db.Query(ctx, `SELECT id, name, cert_pem FROM requestors`)
	if err != nil {
		return wrap("select requestors", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.RequestorEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.CertPEM); err != nil {
			return wrap("scan requestors row", err)
		}
		conf.Requestors = append(conf.Requestors, &e)
	}
	if err := rows.Err(); err != nil {
		return wrap("iterate requestors rows", err)
	}

	rows, err = s.db.Query(ctx, `SELECT id, name, active, password_hash FROM users`)
	if err != nil {
		return wrap("select users", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.UserEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Active, &e.PasswordHash); err != nil {
			return wrap("scan users row", err)
		}
		conf.Users = append(conf.Users, &e)
	}
	return wrap("iterate users rows", rows.Err())
}

func (s *PostgresStore) loadProfilesPublishers(ctx context.Context, conf *model.CaConf) error {
	rows, err := s.db.Query(ctx, `SELECT id, name, type, conf FROM profiles`)
	if err != nil {
		return wrap("select profiles", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.ProfileEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Conf); err != nil {
			return wrap("scan profiles row", err)
		}
		conf.Profiles = append(conf.Profiles, &e)
	}
	if err := rows.Err(); err != nil {
		return wrap("iterate profiles rows", err)
	}

	rows, err = s.db.Query(ctx, `SELECT id, name, type, conf FROM publishers`)
	if err != nil {
		return wrap("select publishers", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.PublisherEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Type, &e.Conf); err != nil {
			return wrap("scan publishers row", err)
		}
		conf.Publishers = append(conf.Publishers, &e)
	}
	return wrap("iterate publishers rows", rows.Err())
}

func (s *PostgresStore) loadSceps(ctx context.Context, conf *model.CaConf) error {
	rows, err := s.db.Query(ctx, `SELECT ca_id, active, profiles, responder, control FROM sceps`)
	if err != nil {
		return wrap("select sceps", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.ScepEntry
		if err := rows.Scan(&e.CaID, &e.Active, &e.Profiles, &e.ResponderName, &e.Control); err != nil {
			return wrap("scan sceps row", err)
		}
		conf.Sceps = append(conf.Sceps, &e)
	}
	return wrap("iterate sceps rows", rows.Err())
}

func (s *PostgresStore) loadAssociations(ctx context.Context, conf *model.CaConf) error {
	rows, err := s.db.Query(ctx, `SELECT ca_id, requestor, ra, permissions, profiles FROM ca_has_requestors`)
	if err != nil {
		return wrap("select ca_has_requestors", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a     model.CaHasRequestor
			perms int64
		)
		if err := rows.Scan(&a.CaID, &a.RequestorName, &a.RA, &perms, &a.Profiles); err != nil {
			return wrap("scan ca_has_requestors row", err)
		}
		a.Permissions = model.Permission(perms)
		conf.CaHasRequestors = append(conf.CaHasRequestors, a)
	}
	if err := rows.Err(); err != nil {
		return wrap("iterate ca_has_requestors rows", err)
	}

	rows, err = s.db.Query(ctx, `SELECT ca_id, username, permissions, profiles FROM ca_has_users`)
	if err != nil {
		return wrap("select ca_has_users", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a     model.CaHasUser
			perms int64
		)
		if err := rows.Scan(&a.CaID, &a.UserName, &perms, &a.Profiles); err != nil {
			return wrap("scan ca_has_users row", err)
		}
		a.Permissions = model.Permission(perms)
		conf.CaHasUsers = append(conf.CaHasUsers, a)
	}
	if err := rows.Err(); err != nil {
		return wrap("iterate ca_has_users rows", err)
	}

	rows, err = s.db.Query(ctx, `SELECT ca_id, profile_id FROM ca_has_profiles`)
	if err != nil {
		return wrap("select ca_has_profiles", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a model.CaHasProfile
		if err := rows.Scan(&a.CaID, &a.ProfileID); err != nil {
			return wrap("scan ca_has_profiles row", err)
		}
		conf.CaHasProfiles = append(conf.CaHasProfiles, a)
	}
	if err := rows.Err(); err != nil {
		return wrap("iterate ca_has_profiles rows", err)
	}

	rows, err = s.db.Query(ctx, `SELECT ca_id, publisher_id FROM ca_has_publishers`)
	if err != nil {
		return wrap("select ca_has_publishers", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a model.CaHasPublisher
		if err := rows.Scan(&a.CaID, &a.PublisherID); err != nil {
			return wrap("scan ca_has_publishers row", err)
		}
		conf.CaHasPublishers = append(conf.CaHasPublishers, a)
	}
	return wrap("iterate ca_has_publishers rows", rows.Err())
}

// SaveCa upserts a CA row, whole-entity.
func (s *PostgresStore) SaveCa(ctx context.Context, ca *model.CaEntry) error {
	const q = `
		INSERT INTO cas (
			id, name, status, sn_len,
			cacert_uris, crl_uris, deltacrl_uris, ocsp_uris,
			max_validity_seconds, signer_type, signer_conf, cert_pem,
			crl_signer, responder, cmp_control,
			permissions, duplicate_key, duplicate_subject, save_request,
			validity_mode, expiration_period, num_crls,
			keep_expired_cert_days, next_crl_no, extra_control,
			revoked, rev_reason, rev_time, rev_inv_time
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26,
			$27, $28, $29
		)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, status = EXCLUDED.status,
			sn_len = EXCLUDED.sn_len,
			cacert_uris = EXCLUDED.cacert_uris, crl_uris = EXCLUDED.crl_uris,
			deltacrl_uris = EXCLUDED.deltacrl_uris, ocsp_uris = EXCLUDED.ocsp_uris,
			max_validity_seconds = EXCLUDED.max_validity_seconds,
			signer_type = EXCLUDED.signer_type, signer_conf = EXCLUDED.signer_conf,
			cert_pem = EXCLUDED.cert_pem, crl_signer = EXCLUDED.crl_signer,
			responder = EXCLUDED.responder, cmp_control = EXCLUDED.cmp_control,
			permissions = EXCLUDED.permissions,
			duplicate_key = EXCLUDED.duplicate_key,
			duplicate_subject = EXCLUDED.duplicate_subject,
			save_request = EXCLUDED.save_request,
			validity_mode = EXCLUDED.validity_mode,
			expiration_period = EXCLUDED.expiration_period,
			num_crls = EXCLUDED.num_crls,
			keep_expired_cert_days = EXCLUDED.keep_expired_cert_days,
			next_crl_no = EXCLUDED.next_crl_no,
			extra_control = EXCLUDED.extra_control,
			revoked = EXCLUDED.revoked, rev_reason = EXCLUDED.rev_reason,
			rev_time = EXCLUDED.rev_time, rev_inv_time = EXCLUDED.rev_inv_time`

	var (
		revoked    bool
		revReason  *int
		revTime    *time.Time
		revInvTime *time.Time
	)
	if ca.Revocation != nil {
		revoked = true
		reason := int(ca.Revocation.Reason)
		revReason = &reason
		revTime = &ca.Revocation.RevokedAt
		revInvTime = &ca.Revocation.InvalidityAt
	}

	_, err := s.db.Exec(ctx, q,
		ca.ID, ca.Name, string(ca.Status), ca.SerialNoLen,
		ca.Uris.CaCertURIs, ca.Uris.CrlURIs, ca.Uris.DeltaCrlURIs, ca.Uris.OcspURIs,
		int64(ca.MaxValidity/time.Second), ca.SignerType, ca.SignerConf, ca.CertPEM,
		ca.CrlSignerName, ca.ResponderName, ca.CmpControlName,
		int64(ca.Permissions), int(ca.DuplicateKeyMode), int(ca.DuplicateSubjectMode), ca.SaveRequest,
		string(ca.ValidityMode), ca.ExpirationPeriodDays, ca.NumCrls,
		ca.KeepExpiredCertDays, ca.NextCrlNo, ca.ExtraControl,
		revoked, revReason, revTime, revInvTime,
	)
	return wrap("upsert ca", err)
}

// DeleteCa removes a CA row; dependent rows go with it via ON DELETE CASCADE.
func (s *PostgresStore) DeleteCa(ctx context.Context, caID int) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cas WHERE id = $1`, caID)
	return wrap("delete ca", err)
}

// SaveCaAlias upserts an alias row.
func (s *PostgresStore) SaveCaAlias(ctx context.Context, alias model.CaAlias) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ca_aliases (name, ca_id) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET ca_id = EXCLUDED.ca_id`,
		alias.Name, alias.CaID)
	return wrap("upsert ca_alias", err)
}

// DeleteCaAlias removes an alias row.
func (s *PostgresStore) DeleteCaAlias(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM ca_aliases WHERE name = $1`, name)
	return wrap("delete ca_alias", err)
}

// SaveSigner upserts a signer row.
func (s *PostgresStore) SaveSigner(ctx context.Context, e *model.SignerEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO signers (name, type, conf, cert_pem) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			type = EXCLUDED.type, conf = EXCLUDED.conf, cert_pem = EXCLUDED.cert_pem`,
		e.Name, e.Type, e.Conf, e.CertPEM)
	return wrap("upsert signer", err)
}

// DeleteSigner removes a signer row.
func (s *PostgresStore) DeleteSigner(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM signers WHERE name = $1`, name)
	return wrap("delete signer", err)
}

// SaveCrlSigner upserts a CRL signer row.
func (s *PostgresStore) SaveCrlSigner(ctx context.Context, e *model.CrlSignerEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO crl_signers (name, type, conf, cert_pem, crl_control)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			type = EXCLUDED.type, conf = EXCLUDED.conf,
			cert_pem = EXCLUDED.cert_pem, crl_control = EXCLUDED.crl_control`,
		e.Name, e.Type, e.Conf, e.CertPEM, e.CrlControl)
	return wrap("upsert crl_signer", err)
}

// DeleteCrlSigner removes a CRL signer row.
func (s *PostgresStore) DeleteCrlSigner(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM crl_signers WHERE name = $1`, name)
	return wrap("delete crl_signer", err)
}

// SaveResponder upserts a responder row.
func (s *PostgresStore) SaveResponder(ctx context.Context, e *model.ResponderEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO responders (name, type, conf, cert_pem) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			type = EXCLUDED.type, conf = EXCLUDED.conf, cert_pem = EXCLUDED.cert_pem`,
		e.Name, e.Type, e.Conf, e.CertPEM)
	return wrap("upsert responder", err)
}

// DeleteResponder removes a responder row.
func (s *PostgresStore) DeleteResponder(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM responders WHERE name = $1`, name)
	return wrap("delete responder", err)
}

// SaveCmpControl upserts a CMP control row.
func (s *PostgresStore) SaveCmpControl(ctx context.Context, e *model.CmpControlEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO cmp_controls (name, conf) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET conf = EXCLUDED.conf`,
		e.Name, e.Conf)
	return wrap("upsert cmp_control", err)
}

// DeleteCmpControl removes a CMP control row.
func (s *PostgresStore) DeleteCmpControl(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM cmp_controls WHERE name = $1`, name)
	return wrap("delete cmp_control", err)
}

// SaveRequestor upserts a requestor row.
func (s *PostgresStore) SaveRequestor(ctx context.Context, e *model.RequestorEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO requestors (id, name, cert_pem) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET id = EXCLUDED.id, cert_pem = EXCLUDED.cert_pem`,
		e.ID, e.Name, e.CertPEM)
	return wrap("upsert requestor", err)
}

// DeleteRequestor removes a requestor row.
func (s *PostgresStore) DeleteRequestor(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM requestors WHERE name = $1`, name)
	return wrap("delete requestor", err)
}

// SaveUser upserts a user row.
func (s *PostgresStore) SaveUser(ctx context.Context, e *model.UserEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, name, active, password_hash) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			id = EXCLUDED.id, active = EXCLUDED.active,
			password_hash = EXCLUDED.password_hash`,
		e.ID, e.Name, e.Active, e.PasswordHash)
	return wrap("upsert user", err)
}

// DeleteUser removes a user row.
func (s *PostgresStore) DeleteUser(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM users WHERE name = $1`, name)
	return wrap("delete user", err)
}

// SaveProfile upserts a profile row.
func (s *PostgresStore) SaveProfile(ctx context.Context, e *model.ProfileEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO profiles (id, name, type, conf) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			id = EXCLUDED.id, type = EXCLUDED.type, conf = EXCLUDED.conf`,
		e.ID, e.Name, e.Type, e.Conf)
	return wrap("upsert profile", err)
}

// DeleteProfile removes a profile row.
func (s *PostgresStore) DeleteProfile(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM profiles WHERE name = $1`, name)
	return wrap("delete profile", err)
}

// SavePublisher upserts a publisher row.
func (s *PostgresStore) SavePublisher(ctx context.Context, e *model.PublisherEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO publishers (id, name, type, conf) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			id = EXCLUDED.id, type = EXCLUDED.type, conf = EXCLUDED.conf`,
		e.ID, e.Name, e.Type, e.Conf)
	return wrap("upsert publisher", err)
}

// DeletePublisher removes a publisher row.
func (s *PostgresStore) DeletePublisher(ctx context.Context, name string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM publishers WHERE name = $1`, name)
	return wrap("delete publisher", err)
}

// SaveScep upserts a SCEP row.
func (s *PostgresStore) SaveScep(ctx context.Context, e *model.ScepEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sceps (ca_id, active, profiles, responder, control)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ca_id) DO UPDATE SET
			active = EXCLUDED.active, profiles = EXCLUDED.profiles,
			responder = EXCLUDED.responder, control = EXCLUDED.control`,
		e.CaID, e.Active, e.Profiles, e.ResponderName, e.Control)
	return wrap("upsert scep", err)
}

// DeleteScep removes the SCEP row of a CA.
func (s *PostgresStore) DeleteScep(ctx context.Context, caID int) error {
	_, err := s.db.Exec(ctx, `DELETE FROM sceps WHERE ca_id = $1`, caID)
	return wrap("delete scep", err)
}

// SaveCaRequestor upserts a CA-requestor association row.
func (s *PostgresStore) SaveCaRequestor(ctx context.Context, a model.CaHasRequestor) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ca_has_requestors (ca_id, requestor, ra, permissions, profiles)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ca_id, requestor) DO UPDATE SET
			ra = EXCLUDED.ra, permissions = EXCLUDED.permissions,
			profiles = EXCLUDED.profiles`,
		a.CaID, a.RequestorName, a.RA, int64(a.Permissions), a.Profiles)
	return wrap("upsert ca_has_requestor", err)
}

// DeleteCaRequestor removes one CA-requestor association.
func (s *PostgresStore) DeleteCaRequestor(ctx context.Context, caID int, requestorName string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM ca_has_requestors WHERE ca_id = $1 AND requestor = $2`,
		caID, requestorName)
	return wrap("delete ca_has_requestor", err)
}

// SaveCaUser upserts a CA-user association row.
func (s *PostgresStore) SaveCaUser(ctx context.Context, a model.CaHasUser) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ca_has_users (ca_id, username, permissions, profiles)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ca_id, username) DO UPDATE SET
			permissions = EXCLUDED.permissions, profiles = EXCLUDED.profiles`,
		a.CaID, a.UserName, int64(a.Permissions), a.Profiles)
	return wrap("upsert ca_has_user", err)
}

// DeleteCaUser removes one CA-user association.
func (s *PostgresStore) DeleteCaUser(ctx context.Context, caID int, userName string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM ca_has_users WHERE ca_id = $1 AND username = $2`,
		caID, userName)
	return wrap("delete ca_has_user", err)
}

// SaveCaProfile inserts a CA-profile pair.
func (s *PostgresStore) SaveCaProfile(ctx context.Context, a model.CaHasProfile) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ca_has_profiles (ca_id, profile_id) VALUES ($1, $2)
		ON CONFLICT (ca_id, profile_id) DO NOTHING`,
		a.CaID, a.ProfileID)
	return wrap("upsert ca_has_profile", err)
}

// DeleteCaProfile removes one CA-profile pair.
func (s *PostgresStore) DeleteCaProfile(ctx context.Context, caID, profileID int) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM ca_has_profiles WHERE ca_id = $1 AND profile_id = $2`,
		caID, profileID)
	return wrap("delete ca_has_profile", err)
}

// SaveCaPublisher inserts a CA-publisher pair.
func (s *PostgresStore) SaveCaPublisher(ctx context.Context, a model.CaHasPublisher) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ca_has_publishers (ca_id, publisher_id) VALUES ($1, $2)
		ON CONFLICT (ca_id, publisher_id) DO NOTHING`,
		a.CaID, a.PublisherID)
	return wrap("upsert ca_has_publisher", err)
}

// DeleteCaPublisher removes one CA-publisher pair.
func (s *PostgresStore) DeleteCaPublisher(ctx context.Context, caID, publisherID int) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM ca_has_publishers WHERE ca_id = $1 AND publisher_id = $2`,
		caID, publisherID)
	return wrap("delete ca_has_publisher", err)
}
