// Command permlint checks a permission document offline and prints what every
// role ends up being allowed to do.
//
//	permlint -file org.yaml
//	permlint -file org.json -role counter -format json
//	permlint -default > configs/default_permissions.yaml
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
	"posadmin/internal/domain/permissions"
	"posadmin/internal/infrastructure/templatefile"
)

type report struct {
	Validation permissions.ValidationResult            `json:"validation" yaml:"validation"`
	Roles      map[string]*permissions.UserPermissions `json:"roles,omitempty" yaml:"roles,omitempty"`
	RoleErrors map[string]string                       `json:"role_errors,omitempty" yaml:"role_errors,omitempty"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("permlint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := fs.String("file", "", "permission document to check (YAML or JSON)")
	role := fs.String("role", "", "only report this role")
	format := fs.String("format", "yaml", "output format: yaml or json")
	dumpDefault := fs.Bool("default", false, "print the built-in default template and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *dumpDefault {
		if err := templatefile.Encode(stdout, permissions.DefaultTemplate()); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		return 0
	}
	if *file == "" {
		fmt.Fprintln(stderr, "permlint: -file is required")
		fs.Usage()
		return 2
	}
	if *format != "yaml" && *format != "json" {
		fmt.Fprintf(stderr, "permlint: unknown format %q\n", *format)
		return 2
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		fmt.Fprintf(stderr, "permlint: %v\n", err)
		return 1
	}
	doc, err := templatefile.Decode(data)
	if err != nil {
		fmt.Fprintf(stderr, "permlint: %v\n", err)
		return 1
	}

	out := lint(doc, permissions.UserRole(*role))
	if err := write(stdout, *format, out); err != nil {
		fmt.Fprintf(stderr, "permlint: %v\n", err)
		return 1
	}
	if !out.Validation.IsValid || len(out.RoleErrors) > 0 {
		return 1
	}
	return 0
}

func lint(doc permissions.OrganizationPermissions, only permissions.UserRole) report {
	out := report{Validation: permissions.ValidatePermissions(doc.AsUpdate())}
	if !out.Validation.IsValid {
		return out
	}

	roles := make([]string, 0, len(doc.Roles))
	for role := range doc.Roles {
		roles = append(roles, string(role))
	}
	if only != "" {
		roles = []string{string(only)}
	}
	sort.Strings(roles)

	out.Roles = map[string]*permissions.UserPermissions{}
	for _, role := range roles {
		if summary := permissions.GetUserPermissions(doc, permissions.UserRole(role)); summary != nil {
			out.Roles[role] = summary
			continue
		}
		if out.RoleErrors == nil {
			out.RoleErrors = map[string]string{}
		}
		if _, err := permissions.CalculateEffectivePermissions(doc, permissions.UserRole(role)); err != nil {
			out.RoleErrors[role] = err.Error()
		} else {
			out.RoleErrors[role] = "role cannot be resolved"
		}
	}
	return out
}

func write(w io.Writer, format string, out report) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}
