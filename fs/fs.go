// Package appfs embeds the assets shipped inside the binaries: database
// migrations, email templates and the common password list.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS

// EmailTemplatesRoot is where core.ParseEmailTemplates should look.
const EmailTemplatesRoot = "assets/templates/email"

// MigrationsRoot is the goose base directory.
const MigrationsRoot = "migrations"
