package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	id "attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"
)

const maxSecurityQuestions = 5

// SecurityQuestion is a question with its plaintext answer as supplied by a caller.
type SecurityQuestion struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SecurityAnswer is a stored question with a bcrypt hash of its normalized answer.
type SecurityAnswer struct {
	Question   string `json:"question"`
	AnswerHash string `json:"answer_hash"`
}

// Info is everything the registry knows about a DID besides its document.
//
// Invariants:
//   - IdentifierHash is unique across the registry
//   - RecoveryIdentifierHash and SecurityAnswers are never returned to callers; see Public
type Info struct {
	DID                    id.DID           `json:"did"`
	Method                 id.DIDMethod     `json:"method"`
	IdentifierKind         IdentifierKind   `json:"identifier_kind"`
	IdentifierHash         string           `json:"identifier_hash"`
	RecoveryIdentifierHash string           `json:"recovery_identifier_hash,omitempty"`
	SecurityAnswers        []SecurityAnswer `json:"security_answers,omitempty"`
	Verified               bool             `json:"verified"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

// Record is the unit the registry stores per DID.
type Record struct {
	Info     Info
	Document *Document
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Info.SecurityAnswers = append([]SecurityAnswer(nil), r.Info.SecurityAnswers...)
	c.Document = r.Document.Clone()
	return &c
}

// PublicInfo is Info with recovery material removed.
type PublicInfo struct {
	DID                id.DID         `json:"did"`
	Method             id.DIDMethod   `json:"method"`
	IdentifierKind     IdentifierKind `json:"identifier_kind"`
	Verified           bool           `json:"verified"`
	RecoveryConfigured bool           `json:"recovery_configured"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (i *Info) Public() PublicInfo {
	return PublicInfo{
		DID:                i.DID,
		Method:             i.Method,
		IdentifierKind:     i.IdentifierKind,
		Verified:           i.Verified,
		RecoveryConfigured: i.RecoveryIdentifierHash != "" || len(i.SecurityAnswers) > 0,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

// ApplyRecovery marks the DID as verified by its controller.
func (i *Info) ApplyRecovery(now time.Time) {
	i.Verified = true
	i.UpdatedAt = now
}

// RegisterRequest carries the identifier material for a new DID.
// When several identifiers are present the wallet wins, then email, then social.
type RegisterRequest struct {
	WalletAddress     string             `json:"wallet_address,omitempty"`
	Email             string             `json:"email,omitempty"`
	SocialProvider    string             `json:"social_provider,omitempty"`
	SocialHandle      string             `json:"social_handle,omitempty"`
	RecoveryEmail     string             `json:"recovery_email,omitempty"`
	SecurityQuestions []SecurityQuestion `json:"security_questions,omitempty"`
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.WalletAddress = strings.TrimSpace(r.WalletAddress)
	r.Email = strings.TrimSpace(r.Email)
	r.SocialProvider = strings.TrimSpace(r.SocialProvider)
	r.SocialHandle = strings.TrimSpace(r.SocialHandle)
	r.RecoveryEmail = strings.TrimSpace(r.RecoveryEmail)
	for i := range r.SecurityQuestions {
		r.SecurityQuestions[i].Question = strings.TrimSpace(r.SecurityQuestions[i].Question)
	}
}

func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := r.PrimaryIdentifier(); err != nil {
		return err
	}
	if r.RecoveryEmail != "" {
		if _, err := NormalizeEmail(r.RecoveryEmail); err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "recovery_email is invalid")
		}
	}
	if len(r.SecurityQuestions) > maxSecurityQuestions {
		return dErrors.New(dErrors.CodeInvalidInput, "at most 5 security questions are allowed")
	}
	seen := make(map[string]struct{}, len(r.SecurityQuestions))
	for _, q := range r.SecurityQuestions {
		if q.Question == "" || normalizeAnswer(q.Answer) == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "security questions need a question and an answer")
		}
		if _, dup := seen[q.Question]; dup {
			return dErrors.New(dErrors.CodeInvalidInput, "duplicate security question")
		}
		seen[q.Question] = struct{}{}
	}
	return nil
}

// PrimaryIdentifier picks and normalizes the identifier the DID is derived from.
func (r *RegisterRequest) PrimaryIdentifier() (Identifier, error) {
	switch {
	case r.WalletAddress != "":
		return NewWalletIdentifier(r.WalletAddress)
	case r.Email != "":
		return NewEmailIdentifier(r.Email)
	case r.SocialProvider != "" || r.SocialHandle != "":
		return NewSocialIdentifier(r.SocialProvider, r.SocialHandle)
	}
	return Identifier{}, dErrors.New(dErrors.CodeInvalidInput, "one of wallet_address, email or social_provider+social_handle is required")
}

// RecoverRequest carries the proofs of control offered for a DID. Every
// supplied factor is checked; see Info.MatchedFactors.
type RecoverRequest struct {
	DID             string             `json:"did"`
	WalletAddress   string             `json:"wallet_address,omitempty"`
	Email           string             `json:"email,omitempty"`
	SocialProvider  string             `json:"social_provider,omitempty"`
	SocialHandle    string             `json:"social_handle,omitempty"`
	RecoveryEmail   string             `json:"recovery_email,omitempty"`
	SecurityAnswers []SecurityQuestion `json:"security_answers,omitempty"`
}

func (r *RecoverRequest) Normalize() {
	if r == nil {
		return
	}
	r.DID = strings.TrimSpace(r.DID)
	r.WalletAddress = strings.TrimSpace(r.WalletAddress)
	r.Email = strings.TrimSpace(r.Email)
	r.SocialProvider = strings.TrimSpace(r.SocialProvider)
	r.SocialHandle = strings.TrimSpace(r.SocialHandle)
	r.RecoveryEmail = strings.TrimSpace(r.RecoveryEmail)
	for i := range r.SecurityAnswers {
		r.SecurityAnswers[i].Question = strings.TrimSpace(r.SecurityAnswers[i].Question)
	}
}

func (r *RecoverRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if _, err := id.ParseDID(r.DID); err != nil {
		return err
	}
	if r.WalletAddress == "" && r.Email == "" && r.SocialHandle == "" &&
		r.RecoveryEmail == "" && len(r.SecurityAnswers) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one recovery proof is required")
	}
	return nil
}

// MatchedFactors counts the independent proofs of control in req that match:
// the original identifier, the recovery email, and the complete set of
// security answers each count once. Malformed proofs simply do not match.
func (i *Info) MatchedFactors(req *RecoverRequest) int {
	matched := 0
	if i.originalIdentifierMatches(req) {
		matched++
	}
	if i.RecoveryIdentifierHash != "" && req.RecoveryEmail != "" {
		if email, err := NormalizeEmail(req.RecoveryEmail); err == nil && RecoveryIdentifierHash(email) == i.RecoveryIdentifierHash {
			matched++
		}
	}
	if i.securityAnswersMatch(req.SecurityAnswers) {
		matched++
	}
	return matched
}

func (i *Info) originalIdentifierMatches(req *RecoverRequest) bool {
	var (
		ident Identifier
		err   error
	)
	switch i.IdentifierKind {
	case IdentifierWallet:
		if req.WalletAddress == "" {
			return false
		}
		ident, err = NewWalletIdentifier(req.WalletAddress)
	case IdentifierEmail:
		if req.Email == "" {
			return false
		}
		ident, err = NewEmailIdentifier(req.Email)
	case IdentifierSocial:
		if req.SocialHandle == "" {
			return false
		}
		ident, err = NewSocialIdentifier(req.SocialProvider, req.SocialHandle)
	default:
		return false
	}
	return err == nil && ident.Hash() == i.IdentifierHash
}

// securityAnswersMatch requires every stored question to be answered correctly.
func (i *Info) securityAnswersMatch(answers []SecurityQuestion) bool {
	if len(i.SecurityAnswers) == 0 || len(answers) == 0 {
		return false
	}
	given := make(map[string]string, len(answers))
	for _, a := range answers {
		given[a.Question] = a.Answer
	}
	for _, stored := range i.SecurityAnswers {
		answer, ok := given[stored.Question]
		if !ok {
			return false
		}
		if bcrypt.CompareHashAndPassword([]byte(stored.AnswerHash), []byte(normalizeAnswer(answer))) != nil {
			return false
		}
	}
	return true
}

// HashSecurityAnswers bcrypt-hashes normalized answers.
func HashSecurityAnswers(questions []SecurityQuestion, cost int) ([]SecurityAnswer, error) {
	if len(questions) == 0 {
		return nil, nil
	}
	out := make([]SecurityAnswer, 0, len(questions))
	for _, q := range questions {
		hash, err := bcrypt.GenerateFromPassword([]byte(normalizeAnswer(q.Answer)), cost)
		if err != nil {
			return nil, err
		}
		out = append(out, SecurityAnswer{Question: q.Question, AnswerHash: string(hash)})
	}
	return out, nil
}

// RecoveryIdentifierHash hashes a normalized recovery email.
func RecoveryIdentifierHash(email string) string {
	return HashIdentifier("recovery:" + email)
}

func normalizeAnswer(a string) string {
	return strings.ToLower(strings.Join(strings.Fields(a), " "))
}
