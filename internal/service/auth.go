package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/lockout"
	"github.com/typica-pos/api/internal/throttle"
	"golang.org/x/crypto/bcrypt"
)

// Errors returned by the auth service.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrThrottled          = errors.New("too many login attempts")
)

// ThrottledError reports how long the caller must wait before retrying.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many login attempts, retry in %d seconds", e.Seconds())
}

func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }

// Seconds is RetryAfter rounded up to whole seconds.
func (e *ThrottledError) Seconds() int {
	return int(math.Ceil(e.RetryAfter.Seconds()))
}

// AuthStore defines the DB methods needed to authenticate users.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUsuarioByEmail(ctx context.Context, email string) (database.Usuario, error)
	UpdateLockoutState(ctx context.Context, arg database.UpdateLockoutStateParams) error
	CreateLogSeguridad(ctx context.Context, arg database.CreateLogSeguridadParams) error
}

// AuthService applies the request throttle and the per-user lockout policy
// to password logins, and writes the security log.
type AuthService struct {
	store   AuthStore
	policy  lockout.Policy
	limiter *throttle.Limiter
	loc     *time.Location
	now     func() time.Time
}

// NewAuthService creates a new AuthService. loc defines "today" for the
// daily lock counter.
func NewAuthService(store AuthStore, policy lockout.Policy, limiter *throttle.Limiter, loc *time.Location) *AuthService {
	if loc == nil {
		loc = time.UTC
	}
	return &AuthService{store: store, policy: policy, limiter: limiter, loc: loc, now: time.Now}
}

// Login checks email and password for a client at ip.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (database.Usuario, error) {
	key := throttle.Key(email, ip)
	if s.limiter.TooMany(key) {
		return database.Usuario{}, &ThrottledError{RetryAfter: s.limiter.AvailableIn(key)}
	}

	user, err := s.store.GetUsuarioByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Usuario{}, fmt.Errorf("get usuario: %w", err)
		}
		s.limiter.Hit(key)
		s.securityLog(ctx, uuid.Nil, enum.EventoLoginFallido,
			"Intento fallido de inicio de sesión con correo no registrado: "+email, ip)
		return database.Usuario{}, ErrInvalidCredentials
	}

	now := s.now()
	state := lockoutState(user)
	if err := s.policy.Check(state, now); err != nil {
		s.limiter.Hit(key)
		s.logFailure(ctx, user, ip)
		return database.Usuario{}, err
	}
	state = s.policy.ResetDaily(state, now, s.loc)

	if err := bcrypt.CompareHashAndPassword([]byte(user.ContrasenaHash), []byte(password)); err != nil {
		state = s.policy.RegisterFailure(state, now)
		if err := s.saveState(ctx, user.ID, state); err != nil {
			return database.Usuario{}, err
		}
		s.limiter.Hit(key)
		s.logFailure(ctx, user, ip)
		return database.Usuario{}, ErrInvalidCredentials
	}

	state = s.policy.RegisterSuccess(state)
	if err := s.saveState(ctx, user.ID, state); err != nil {
		return database.Usuario{}, err
	}
	s.limiter.Clear(key)
	s.securityLog(ctx, user.ID, enum.EventoLoginExitoso, "Login exitoso", ip)

	user.Bloqueado = state.Locked
	user.BloqueadoHasta = pgtype.Timestamptz{}
	user.IntentosFallidos = 0
	user.BloqueosHoy = int32(state.LocksToday)
	return user, nil
}

// Logout records the logout in the security log.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, ip string) {
	s.securityLog(ctx, userID, enum.EventoLogout, "Logout", ip)
}

// --- Helpers ---

func (s *AuthService) logFailure(ctx context.Context, user database.Usuario, ip string) {
	s.securityLog(ctx, user.ID, enum.EventoLoginFallido,
		fmt.Sprintf("Intento fallido de inicio de sesión por el usuario: %s.", user.Nombre), ip)
}

// securityLog never fails the login; a write error is only logged.
func (s *AuthService) securityLog(ctx context.Context, userID uuid.UUID, evento, desc, ip string) {
	err := s.store.CreateLogSeguridad(ctx, database.CreateLogSeguridadParams{
		IDUsuario:   pgUUID(userID),
		Evento:      evento,
		Descripcion: pgtype.Text{String: desc, Valid: true},
		Ip:          optionalText(ip),
	})
	if err != nil {
		log.Printf("ERROR: write security log %q: %v", evento, err)
	}
}

func (s *AuthService) saveState(ctx context.Context, id uuid.UUID, st lockout.State) error {
	until := pgtype.Timestamptz{}
	if !st.LockedUntil.IsZero() {
		until = pgtype.Timestamptz{Time: st.LockedUntil, Valid: true}
	}
	err := s.store.UpdateLockoutState(ctx, database.UpdateLockoutStateParams{
		ID:               id,
		Bloqueado:        st.Locked,
		BloqueadoHasta:   until,
		IntentosFallidos: int32(st.Failures),
		BloqueosHoy:      int32(st.LocksToday),
	})
	if err != nil {
		return fmt.Errorf("update lockout: %w", err)
	}
	return nil
}

func lockoutState(u database.Usuario) lockout.State {
	st := lockout.State{
		Locked:     u.Bloqueado,
		Failures:   int(u.IntentosFallidos),
		LocksToday: int(u.BloqueosHoy),
		UpdatedAt:  u.UpdatedAt,
	}
	if u.BloqueadoHasta.Valid {
		st.LockedUntil = u.BloqueadoHasta.Time
	}
	return st
}
