// seed_fiscal gera o script SQL de carga inicial do núcleo fiscal a partir da
// tabela de UFs/autorizadoras (CSV separado por ponto e vírgula, codificado em
// ISO-8859-1, como distribuído nos portais estaduais).
//
// Uso: go run ./cmd/seed_fiscal [caminho/ufs.csv]
// Por padrão busca ufs.csv no diretório atual.
// Escreve: internal/infrastructure/postgres/migrations/002_seed_fiscal.sql
//
// Além das regras de jurisdição, o script inclui um operador administrativo
// (ADMIN_EMAIL/ADMIN_PASSWORD, com hash bcrypt calculado aqui) e um provedor
// contábil genérico padrão.
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func main() {
	csvPath := "ufs.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// Os arquivos dos portais estaduais vêm em Latin-1.
	reader := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ler CSV: %v\n", err)
		os.Exit(1)
	}

	type rule struct {
		uf, name, endpoint string
		requiresEquipment  bool
	}
	var rules []rule
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[0], "uf") {
			continue // cabeçalho
		}
		if len(rec) < 3 {
			continue
		}
		r := rule{
			uf:       strings.ToUpper(strings.TrimSpace(rec[0])),
			name:     strings.TrimSpace(rec[1]),
			endpoint: strings.TrimSpace(rec[2]),
		}
		if len(rec) > 3 {
			r.requiresEquipment = strings.EqualFold(strings.TrimSpace(rec[3]), "sim")
		}
		if r.uf == "" || r.name == "" {
			continue
		}
		rules = append(rules, r)
	}

	moduleRoot := findModuleRoot()
	outPath := filepath.Join(moduleRoot, "internal", "infrastructure", "postgres", "migrations", "002_seed_fiscal.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "criar arquivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Regras de jurisdição por UF (autorizadoras NFC-e/SAT)\n")
	out.WriteString("-- Gerado a partir da tabela de UFs (seed_fiscal)\n\n")

	for _, r := range rules {
		fmt.Fprintf(out,
			"INSERT INTO jurisdiction_rules (uf, name, endpoint, requires_equipment, params, active, created_at, updated_at)\n"+
				"VALUES ('%s', '%s', '%s', %t, '{}', TRUE, now(), now())\n"+
				"ON CONFLICT (uf) DO UPDATE SET name = EXCLUDED.name, endpoint = EXCLUDED.endpoint,\n"+
				"    requires_equipment = EXCLUDED.requires_equipment, updated_at = now();\n",
			r.uf, escapeSQL(r.name), escapeSQL(r.endpoint), r.requiresEquipment)
	}

	// Operador administrativo inicial
	email := envOr("ADMIN_EMAIL", "admin@loja.com.br")
	password := envOr("ADMIN_PASSWORD", "trocar-na-primeira-entrada")
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash da senha: %v\n", err)
		os.Exit(1)
	}
	out.WriteString("\n-- Operador administrativo inicial\n")
	fmt.Fprintf(out,
		"INSERT INTO operators (id, name, email, password_hash, store_id, created_at)\n"+
			"VALUES ('%s', 'Administrador', '%s', '%s', 'loja-1', now())\n"+
			"ON CONFLICT (email) DO NOTHING;\n",
		uuid.NewString(), escapeSQL(email), string(hash))

	// Provedor contábil genérico padrão (formato JSON)
	out.WriteString("\n-- Provedor contábil padrão\n")
	fmt.Fprintf(out,
		"INSERT INTO export_providers (id, name, kind, endpoint, credentials, format, active)\n"+
			"VALUES ('%s', 'Contabilidade Padrão', 'generic', NULL, NULL, 'json', TRUE)\n"+
			"ON CONFLICT (id) DO NOTHING;\n",
		uuid.NewString())

	fmt.Printf("Gerado %s: %d regras de jurisdição\n", outPath, len(rules))
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
