package guestfs

import "github.com/faize-ai/guestdir/internal/vmrest"

// State is the declared intent for a guest directory.
type State string

const (
	StatePresent         State = "present"
	StateAbsent          State = "absent"
	StateMove            State = "move"
	StateCreateTemporary State = "create_temporary"
)

// Guest credential types
const (
	CredentialUsernamePassword = "USERNAME_PASSWORD"
	CredentialSAMLBearerToken  = "SAML_BEARER_TOKEN"
)

// Credentials authenticate the operation inside the guest OS. They are
// unrelated to the vCenter login.
type Credentials struct {
	InteractiveSession bool   `json:"interactive_session" yaml:"interactive_session"`
	Type               string `json:"type" yaml:"type" validate:"required,oneof=USERNAME_PASSWORD SAML_BEARER_TOKEN"`
	UserName           string `json:"user_name,omitempty" yaml:"user_name"`
	Password           string `json:"password,omitempty" yaml:"password"`
	SAMLToken          string `json:"saml_token,omitempty" yaml:"saml_token"`
}

// Request declares the desired state of one directory in a VM's guest.
//
// Which fields matter depends on State:
//   - present: Path, CreateParents
//   - absent: Path, Recursive
//   - move: Path, NewPath
//   - create_temporary: Prefix, Suffix, ParentPath
//
// These groups are not enforced; the server rejects incomplete requests.
type Request struct {
	VM            string       `json:"vm" yaml:"vm" validate:"required"`
	Path          string       `json:"path,omitempty" yaml:"path"`
	NewPath       string       `json:"new_path,omitempty" yaml:"new_path"`
	ParentPath    string       `json:"parent_path,omitempty" yaml:"parent_path"`
	Prefix        string       `json:"prefix,omitempty" yaml:"prefix"`
	Suffix        string       `json:"suffix,omitempty" yaml:"suffix"`
	CreateParents *bool        `json:"create_parents,omitempty" yaml:"create_parents"`
	Recursive     *bool        `json:"recursive,omitempty" yaml:"recursive"`
	Credentials   *Credentials `json:"credentials" yaml:"credentials" validate:"required"`
	State         State        `json:"state,omitempty" yaml:"state" validate:"omitempty,oneof=present absent move create_temporary"`
}

// Params flattens the request into the parameter set the payload builder
// consumes. Empty strings and nil booleans are left unset.
func (r *Request) Params() vmrest.Params {
	params := vmrest.Params{
		"vm":             r.VM,
		"path":           optString(r.Path),
		"new_path":       optString(r.NewPath),
		"parent_path":    optString(r.ParentPath),
		"prefix":         optString(r.Prefix),
		"suffix":         optString(r.Suffix),
		"create_parents": optBool(r.CreateParents),
		"recursive":      optBool(r.Recursive),
		"credentials":    nil,
	}
	if r.Credentials != nil {
		params["credentials"] = r.Credentials
	}
	return params
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func optBool(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// Bool returns a pointer to b, for filling optional request fields.
func Bool(b bool) *bool {
	return &b
}
