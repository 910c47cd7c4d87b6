package templatefile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
	"posadmin/internal/domain"
	"posadmin/internal/domain/permissions"
)

// Decode parses a permission document written in YAML or JSON. Unknown keys
// are rejected so typos in hand-edited files surface immediately.
func Decode(data []byte) (permissions.OrganizationPermissions, error) {
	var doc permissions.OrganizationPermissions
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, fmt.Errorf("empty permission document: %w", domain.ErrInvalidInput)
		}
		return doc, fmt.Errorf("failed to decode permission document: %w", err)
	}
	return doc, nil
}

// Check validates the document shape and resolves every configured role.
func Check(doc permissions.OrganizationPermissions) error {
	result := permissions.ValidatePermissions(doc.AsUpdate())
	if !result.IsValid {
		return &domain.ValidationFailedError{Errors: result.Errors}
	}

	roles := make([]string, 0, len(doc.Roles))
	for role := range doc.Roles {
		roles = append(roles, string(role))
	}
	sort.Strings(roles)
	for _, role := range roles {
		if _, err := permissions.CalculateEffectivePermissions(doc, permissions.UserRole(role)); err != nil {
			return fmt.Errorf("role %s: %w", role, err)
		}
	}
	return nil
}

// Load reads, decodes and checks the document at path.
func Load(path string) (permissions.OrganizationPermissions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return permissions.OrganizationPermissions{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return permissions.OrganizationPermissions{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := Check(doc); err != nil {
		return permissions.OrganizationPermissions{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Template returns a template provider handing out copies of doc.
func Template(doc permissions.OrganizationPermissions) func() permissions.OrganizationPermissions {
	return func() permissions.OrganizationPermissions {
		return doc.Clone()
	}
}

// Encode renders doc as YAML.
func Encode(w io.Writer, doc permissions.OrganizationPermissions) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode permission document: %w", err)
	}
	return enc.Close()
}
