package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

var channelName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// SchemaSQL devuelve el esquema con el canal de notificaciones indicado.
func SchemaSQL(channel string) (string, error) {
	if !channelName.MatchString(channel) {
		return "", fmt.Errorf("nombre de canal inválido: %q", channel)
	}
	return strings.ReplaceAll(schemaSQL, "{{channel}}", channel), nil
}

// Migrate aplica el esquema embebido (tablas, índices y triggers del change-feed).
// Sin argumentos pgx usa el protocolo simple, que admite varias sentencias.
func Migrate(ctx context.Context, q Querier, channel string) error {
	sql, err := SchemaSQL(channel)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, sql); err != nil {
		return fmt.Errorf("aplicar esquema: %w", err)
	}
	return nil
}
