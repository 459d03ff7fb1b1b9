package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/codewithboateng/cbcnorm/internal/api"
	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/classify"
	"github.com/codewithboateng/cbcnorm/internal/fx"
	"github.com/codewithboateng/cbcnorm/internal/jurisdiction"
	"github.com/codewithboateng/cbcnorm/internal/parser"
	"github.com/codewithboateng/cbcnorm/internal/pipeline"
	"github.com/codewithboateng/cbcnorm/internal/reporting"
	"github.com/codewithboateng/cbcnorm/internal/rules"
	"github.com/codewithboateng/cbcnorm/internal/shared"
	"github.com/codewithboateng/cbcnorm/internal/storage"
	"github.com/codewithboateng/cbcnorm/internal/values"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "normalize":
		normalizeCmd(os.Args[2:])
	case "orient":
		orientCmd(os.Args[2:])
	case "columns":
		columnsCmd(os.Args[2:])
	case "audit":
		auditCmd(os.Args[2:])
	case "rules":
		if len(os.Args) < 3 || os.Args[2] != "add" {
			usage()
			os.Exit(2)
		}
		rulesAddCmd(os.Args[3:])
	case "diff":
		diffCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "user":
		if len(os.Args) < 3 || os.Args[2] != "add" {
			usage()
			os.Exit(2)
		}
		userAddCmd(os.Args[3:])
	case "version":
		fmt.Println("cbcnorm schema:", cbc.SchemaVersion)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `cbcnorm – CbC report table normalizer

Usage:
  cbcnorm normalize --path <csv-file|dir> --group <mnc> --year <fy> [--currency <code>] [--out <reports-dir>] [--db ./cbcnorm.db] [--rules <file>] [--names <csv>] [--rates <csv>] [--config ./configs/cbcnorm.yaml]
  cbcnorm orient    --path <csv-file|dir> [--min-jurisdictions 3] [--min-terms 3] [--config ./configs/cbcnorm.yaml]
  cbcnorm columns   [--rules <file>]
  cbcnorm audit     [--rules <file>] [--out <csv-file>]
  cbcnorm rules add --axis <column|jurisdiction> --source <label> --sink <name> [--scope global|company|year] [--justification <text>] [--group <mnc>] [--year <fy>] [--rules <file>]
  cbcnorm diff      --base <run-id> --head <run-id> --out <reports-dir> [--db ./cbcnorm.db]
  cbcnorm serve     [--addr :8787] [--db ./cbcnorm.db] [--rules <file>] [--names <csv>] [--config ./configs/cbcnorm.yaml]
  cbcnorm user add  --name <username> --password <secret> [--role viewer] [--db ./cbcnorm.db]
  cbcnorm version
`)
}

// loadIndex builds the jurisdiction reference, swapping the bundled name
// table for a CSV one when a path is given.
func loadIndex(namesPath string) (*jurisdiction.Index, error) {
	if namesPath == "" {
		return jurisdiction.NewDefaultIndex(), nil
	}
	names, err := jurisdiction.LoadNames(namesPath)
	if err != nil {
		return nil, err
	}
	return jurisdiction.NewIndex(jurisdiction.DefaultCatalog(), names), nil
}

func normalizeCmd(args []string) {
	fs := flag.NewFlagSet("normalize", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Path to a table CSV or a directory of page CSVs")
	group := fs.String("group", "", "Multinational group the report belongs to")
	year := fs.String("year", "", "Report end of year")
	currency := fs.String("currency", "", "Filing currency, EUR or empty skips conversion")
	outDir := fs.String("out", "", "Output directory for reports")
	dbPath := fs.String("db", "", "SQLite database path")
	rulesPath := fs.String("rules", "", "Rule book JSON path")
	namesPath := fs.String("names", "", "Countryish-names CSV path (optional)")
	ratesPath := fs.String("rates", "", "Exchange-rates CSV path (optional)")
	minJur := fs.Int("min-jurisdictions", 0, "Jurisdiction threshold for orientation")
	minTerms := fs.Int("min-terms", 0, "CbC-term threshold for orientation")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging)

	// precedence: flags > config > defaults
	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *rulesPath == "" {
		*rulesPath = cfg.Rules.Path
	}
	if *namesPath == "" {
		*namesPath = cfg.Reference.Names
	}
	if *ratesPath == "" {
		*ratesPath = cfg.Reference.Rates
	}
	if *minJur == 0 {
		*minJur = cfg.Classifier.MinJurisdictions
	}
	if *minTerms == 0 {
		*minTerms = cfg.Classifier.MinTerms
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "normalize: --path is required")
		os.Exit(2)
	}
	if *group == "" || *year == "" {
		fmt.Fprintln(os.Stderr, "normalize: --group and --year are required")
		os.Exit(2)
	}
	if !values.IsYear(*year) {
		slog.Warn("end of year does not look like a year", "year", *year)
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "normalize: cannot create out dir:", err)
		os.Exit(1)
	}

	book, err := rules.Load(*rulesPath)
	if err != nil {
		slog.Error("rule book load error", "err", err)
		os.Exit(1)
	}
	ix, err := loadIndex(*namesPath)
	if err != nil {
		slog.Error("name table load error", "err", err)
		os.Exit(1)
	}
	var rates *fx.Rates
	if *ratesPath != "" {
		rates, err = fx.Load(*ratesPath)
		if err != nil {
			slog.Error("exchange rates load error", "err", err)
			os.Exit(1)
		}
	}

	// Parse
	tables, diags := parser.Parse(*inPath)
	if len(diags.Warnings) > 0 {
		slog.Warn("parse warnings", "warnings", diags.Warnings)
	}

	// Normalize
	rep := cbc.Report{
		GroupName:        *group,
		EndOfYear:        *year,
		Currency:         *currency,
		MinJurisdictions: *minJur,
		MinTerms:         *minTerms,
	}
	pipe := pipeline.Pipeline{Book: book, Index: ix, Rates: rates}
	run, err := pipe.Run(tables, rep, *inPath)
	if err != nil {
		slog.Error("normalize error", "err", err)
		os.Exit(1)
	}
	run.Context.RulesSource = *rulesPath
	run.Context.NamesSource = *namesPath
	run.Context.RatesSource = *ratesPath

	// Persist & report
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}
	if err := db.SaveRun(run); err != nil {
		slog.Error("db save run error", "err", err)
		os.Exit(1)
	}

	jsonPath, _ := reporting.WriteJSON(run.ID, *outDir, run)
	htmlPath, _ := reporting.WriteHTML(run.ID, *outDir, run)
	csvPaths, _ := reporting.WriteTablesCSV(run.ID, *outDir, tables)
	slog.Info("normalize complete",
		"run", run.ID,
		"tables", len(tables),
		"decisions", len(run.Decisions),
		"db", filepath.Clean(*dbPath),
	)
	fmt.Printf("Normalize OK\n  Run: %s\n  JSON: %s\n  HTML: %s\n  Tables: %d CSV\n  DB: %s\n",
		run.ID, jsonPath, htmlPath, len(csvPaths), filepath.Clean(*dbPath))
}

func orientCmd(args []string) {
	fs := flag.NewFlagSet("orient", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	inPath := fs.String("path", "", "Path to a table CSV or a directory of page CSVs")
	namesPath := fs.String("names", "", "Countryish-names CSV path (optional)")
	minJur := fs.Int("min-jurisdictions", 0, "Jurisdiction threshold for orientation")
	minTerms := fs.Int("min-terms", 0, "CbC-term threshold for orientation")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging)

	if *namesPath == "" {
		*namesPath = cfg.Reference.Names
	}
	if *minJur == 0 {
		*minJur = cfg.Classifier.MinJurisdictions
	}
	if *minTerms == 0 {
		*minTerms = cfg.Classifier.MinTerms
	}
	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "orient: --path is required")
		os.Exit(2)
	}

	ix, err := loadIndex(*namesPath)
	if err != nil {
		slog.Error("name table load error", "err", err)
		os.Exit(1)
	}
	tables, diags := parser.Parse(*inPath)
	if len(diags.Warnings) > 0 {
		slog.Warn("parse warnings", "warnings", diags.Warnings)
	}
	rep := cbc.Report{MinJurisdictions: *minJur, MinTerms: *minTerms}
	transposed, err := classify.Orient(tables, rep, ix)
	if err != nil {
		slog.Error("orient error", "err", err)
		os.Exit(1)
	}
	layout := "upright"
	if transposed {
		layout = "transposed"
	}
	fmt.Printf("Orient OK\n  Tables: %d\n  Layout: %s\n", len(tables), layout)
}

func columnsCmd(args []string) {
	fs := flag.NewFlagSet("columns", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	rulesPath := fs.String("rules", "", "Rule book JSON path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging)
	if *rulesPath == "" {
		*rulesPath = cfg.Rules.Path
	}

	book, err := rules.Load(*rulesPath)
	if err != nil {
		slog.Error("rule book load error", "err", err)
		os.Exit(1)
	}
	for _, c := range book.StandardColumnNames() {
		fmt.Println(c)
	}
}

func auditCmd(args []string) {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	rulesPath := fs.String("rules", "", "Rule book JSON path")
	outFile := fs.String("out", "", "CSV file to write, stdout when empty")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging)
	if *rulesPath == "" {
		*rulesPath = cfg.Rules.Path
	}

	book, err := rules.Load(*rulesPath)
	if err != nil {
		slog.Error("rule book load error", "err", err)
		os.Exit(1)
	}
	if *outFile == "" {
		if err := reporting.WriteJustificationsCSV(os.Stdout, book); err != nil {
			slog.Error("audit export error", "err", err)
			os.Exit(1)
		}
		return
	}
	f, err := os.Create(*outFile)
	if err != nil {
		slog.Error("audit file error", "err", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := reporting.WriteJustificationsCSV(f, book); err != nil {
		slog.Error("audit export error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("Audit OK\n  %s\n", *outFile)
}

func rulesAddCmd(args []string) {
	fs := flag.NewFlagSet("rules add", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	rulesPath := fs.String("rules", "", "Rule book JSON path")
	axisName := fs.String("axis", "column", "Axis the rule applies to: column or jurisdiction")
	source := fs.String("source", "", "Label to match, prefix with _regex_ for a pattern")
	sink := fs.String("sink", "", "Standard name the label maps to")
	scope := fs.String("scope", "global", "Where the rule lives: global, company or year")
	justification := fs.String("justification", "", "Why this mapping is right")
	group := fs.String("group", "", "Group name, required for company and year scopes")
	year := fs.String("year", "", "End of year, required for year scope")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging)
	if *rulesPath == "" {
		*rulesPath = cfg.Rules.Path
	}

	axis, ok := rules.ParseAxis(*axisName)
	if !ok {
		fmt.Fprintln(os.Stderr, "rules add: --axis must be column or jurisdiction")
		os.Exit(2)
	}
	mode, ok := rules.ParseWriteMode(*scope)
	if !ok {
		fmt.Fprintln(os.Stderr, "rules add: --scope must be global, company or year")
		os.Exit(2)
	}
	if *source == "" || *sink == "" {
		fmt.Fprintln(os.Stderr, "rules add: --source and --sink are required")
		os.Exit(2)
	}
	if mode != rules.WriteGlobal && *group == "" {
		fmt.Fprintln(os.Stderr, "rules add: --group is required for company and year scopes")
		os.Exit(2)
	}
	if mode == rules.WriteCompanyYear && *year == "" {
		fmt.Fprintln(os.Stderr, "rules add: --year is required for year scope")
		os.Exit(2)
	}

	book, err := rules.Load(*rulesPath)
	if err != nil {
		slog.Error("rule book load error", "err", err)
		os.Exit(1)
	}
	rep := cbc.Report{GroupName: *group, EndOfYear: *year}
	if err := book.Write(*source, mode, *sink, *justification, axis, rep); err != nil {
		slog.Error("rule write error", "err", err)
		os.Exit(1)
	}
	if err := book.Save(*rulesPath); err != nil {
		slog.Error("rule book save error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("Rule OK\n  %s -> %s (%s, %s)\n  Book: %s\n", *source, *sink, *axisName, *scope, *rulesPath)
}

func diffCmd(args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	base := fs.String("base", "", "Base run ID")
	head := fs.String("head", "", "Head run ID")
	outDir := fs.String("out", "", "Output directory")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging)

	if *outDir == "" {
		*outDir = cfg.Reporting.OutDir
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *base == "" || *head == "" {
		fmt.Fprintln(os.Stderr, "diff: --base and --head are required")
		os.Exit(2)
	}
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	br, err := db.LoadRun(*base)
	if err != nil {
		slog.Error("load base run error", "err", err); os.Exit(1)
	}
	hr, err := db.LoadRun(*head)
	if err != nil {
		slog.Error("load head run error", "err", err); os.Exit(1)
	}
	path, err := reporting.WriteDiffJSON(*base, *head, *outDir, &br, &hr)
	if err != nil {
		slog.Error("diff write error", "err", err); os.Exit(1)
	}
	fmt.Printf("Diff OK\n  %s\n", path)
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	addr := fs.String("addr", "", "Listen address")
	dbPath := fs.String("db", "", "SQLite database path")
	rulesPath := fs.String("rules", "", "Rule book JSON path")
	namesPath := fs.String("names", "", "Countryish-names CSV path (optional)")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	logger := shared.InitLogger(cfg.Logging)

	if *addr == "" {
		*addr = cfg.Server.Addr
	}
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *rulesPath == "" {
		*rulesPath = cfg.Rules.Path
	}
	if *namesPath == "" {
		*namesPath = cfg.Reference.Names
	}

	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}
	if purged, err := db.PurgeExpiredSessions(); err == nil && purged > 0 {
		slog.Info("expired sessions purged", "count", purged)
	}

	book, err := rules.Load(*rulesPath)
	if err != nil {
		slog.Error("rule book load error", "err", err)
		os.Exit(1)
	}
	ix, err := loadIndex(*namesPath)
	if err != nil {
		slog.Error("name table load error", "err", err)
		os.Exit(1)
	}

	srv := &api.Server{
		DB:              db,
		UserStore:       db,
		Book:            book,
		Index:           ix,
		Logger:          logger,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		SessionDuration: time.Duration(cfg.Server.SessionHours) * time.Hour,
	}
	slog.Info("api listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, srv.Routes()); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}

func userAddCmd(args []string) {
	fs := flag.NewFlagSet("user add", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to YAML config (optional)")
	name := fs.String("name", "", "Username")
	password := fs.String("password", "", "Password")
	role := fs.String("role", "viewer", "Role: viewer or admin")
	dbPath := fs.String("db", "", "SQLite database path")
	_ = fs.Parse(args)

	cfg, _ := shared.LoadConfig(*configPath)
	shared.InitLogger(cfg.Logging)
	if *dbPath == "" {
		*dbPath = cfg.Database.DSN
	}
	if *name == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "user add: --name and --password are required")
		os.Exit(2)
	}

	hash, err := api.HashPassword(*password)
	if err != nil {
		slog.Error("password hash error", "err", err)
		os.Exit(1)
	}
	db, err := storage.OpenSQLite(*dbPath)
	if err != nil {
		slog.Error("db open error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.CreateSchema(); err != nil {
		slog.Error("db schema error", "err", err)
		os.Exit(1)
	}
	id, err := db.CreateUser(*name, hash, *role)
	if err != nil {
		slog.Error("create user error", "err", err)
		os.Exit(1)
	}
	fmt.Printf("User OK\n  ID: %d\n  Name: %s\n  Role: %s\n", id, *name, *role)
}
