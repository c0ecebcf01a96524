package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdf-chat/internal/chat"
	"pdf-chat/internal/chunker"
	"pdf-chat/internal/config"
	"pdf-chat/internal/db"
	"pdf-chat/internal/embedding"
	"pdf-chat/internal/helper"
	"pdf-chat/internal/ingest"
	"pdf-chat/internal/llmservice"
	"pdf-chat/internal/models"
	"pdf-chat/internal/parser"
	"pdf-chat/internal/rag"
	"pdf-chat/internal/transcript"
	"pdf-chat/internal/vectorstore"
)

const (
	defaultConfigPath = "./configs/config.yaml"
	vectorSequence    = "vector_store_next_id"
)

type options struct {
	configPath    string
	ingest        string
	query         string
	image         string
	session       string
	newSession    bool
	backend       string
	model         string
	rag           bool
	k             int
	listSessions  bool
	history       bool
	deleteSession string
	clearStore    bool
	exportStore   string
	importStore   string
	transcript    string
	set           map[string]bool
}

type app struct {
	cfg      *config.Config
	store    *db.Store
	vectors  vectorstore.Store
	pipeline *ingest.Pipeline
	chat     *chat.Service
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()

	opts := parseFlags()

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("Unknown log level, keeping debug")
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing application")
	}
	defer a.store.Close()

	if err := run(ctx, a, opts); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

func parseFlags() *options {
	opts := &options{}
	flag.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to the config file")
	flag.StringVar(&opts.ingest, "ingest", "", "Comma separated PDF files to add to the knowledge base")
	flag.StringVar(&opts.query, "query", "", "Message to send")
	flag.StringVar(&opts.image, "image", "", "Image file to attach to the message")
	flag.StringVar(&opts.session, "session", "", "Session id to use")
	flag.BoolVar(&opts.newSession, "new-session", false, "Start a new session")
	flag.StringVar(&opts.backend, "backend", "", "Chat backend: gemini or openai")
	flag.StringVar(&opts.model, "model", "", "Model name within the backend")
	flag.BoolVar(&opts.rag, "rag", false, "Answer from the knowledge base")
	flag.IntVar(&opts.k, "k", 0, "Number of retrieved documents")
	flag.BoolVar(&opts.listSessions, "list-sessions", false, "List stored sessions")
	flag.BoolVar(&opts.history, "history", false, "Print the history of the session")
	flag.StringVar(&opts.deleteSession, "delete-session", "", "Delete the history of a session")
	flag.BoolVar(&opts.clearStore, "clear-store", false, "Remove every document from the knowledge base")
	flag.StringVar(&opts.exportStore, "export-store", "", "Export the knowledge base to an encrypted file")
	flag.StringVar(&opts.importStore, "import-store", "", "Replace the knowledge base with an exported file")
	flag.StringVar(&opts.transcript, "transcript", "", "Write the session transcript as HTML to this file")
	flag.Parse()

	opts.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := db.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	provider, err := embedding.NewProvider(ctx, cfg)
	if err != nil {
		// embeddings degrade to zero vectors
		log.Warn().Err(err).Msg("Embedding provider unavailable")
		provider = nil
	}
	embedder := embedding.NewService(provider, cfg.RAG.EmbeddingDimension, cfg.Timeout)

	vectors, err := vectorstore.New(&cfg.RAG, embedder, store.Sequence(vectorSequence))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	c, err := chunker.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		store.Close()
		return nil, err
	}

	router := llmservice.NewRouter(rag.NewRAG(vectors))
	catalog := chat.Catalog{}

	gemini, err := llmservice.NewGeminiBackend(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Gemini backend unavailable")
	} else {
		router.Register(models.BackendGemini, gemini)
		catalog.Gemini = gemini.Models()
	}

	openAI := llmservice.NewOpenAIBackend(cfg)
	router.Register(models.BackendOpenAI, openAI)
	if cfg.OpenAI.APIKey != "" {
		catalog.OpenAI = openAI
	}

	return &app{
		cfg:      cfg,
		store:    store,
		vectors:  vectors,
		pipeline: ingest.NewPipeline(parser.NewPDFExtractor(), c, vectors),
		chat:     chat.NewService(store, router, catalog),
	}, nil
}

func run(ctx context.Context, a *app, opts *options) error {
	switch {
	case opts.listSessions:
		return listSessions(ctx, a)
	case opts.deleteSession != "":
		if err := a.store.DeleteHistory(ctx, opts.deleteSession); err != nil {
			return err
		}
		log.Info().Str("session", opts.deleteSession).Msg("Deleted session history")
		return nil
	case opts.clearStore:
		if err := a.vectors.Clear(ctx); err != nil {
			return err
		}
		log.Info().Msg("Cleared knowledge base")
		return nil
	case opts.exportStore != "":
		chromemStore, err := chromemVectors(a)
		if err != nil {
			return err
		}
		return chromemStore.Export(opts.exportStore)
	case opts.importStore != "":
		chromemStore, err := chromemVectors(a)
		if err != nil {
			return err
		}
		if err := chromemStore.Import(opts.importStore); err != nil {
			return err
		}
		log.Info().Str("file", opts.importStore).Int("stored", chromemStore.Count()).Msg("Imported knowledge base")
		return nil
	}

	if opts.ingest != "" {
		if err := ingestFiles(ctx, a, strings.Split(opts.ingest, ",")); err != nil {
			return err
		}
	}

	if opts.query == "" && opts.image == "" && !opts.history && opts.transcript == "" {
		if opts.ingest == "" {
			flag.Usage()
		}
		return nil
	}

	sc, err := sessionContext(ctx, a, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.chat.SaveContext(ctx, sc); err != nil {
			log.Warn().Err(err).Msg("Failed to save session context")
		}
	}()

	switch {
	case opts.history:
		return printHistory(ctx, a, sc.SessionID)
	case opts.transcript != "":
		msgs, err := a.store.LoadMessages(ctx, sc.SessionID)
		if err != nil {
			return err
		}
		if err := transcript.WriteHTML(opts.transcript, sc.SessionID, msgs); err != nil {
			return err
		}
		log.Info().Str("file", opts.transcript).Int("messages", len(msgs)).Msg("Wrote transcript")
		return nil
	}

	var image []byte
	if opts.image != "" {
		if image, err = os.ReadFile(opts.image); err != nil {
			return fmt.Errorf("failed to read image: %w", err)
		}
	}

	reply, err := a.chat.Turn(ctx, sc, opts.query, image)
	if err != nil {
		return err
	}

	log.Info().Str("session", sc.SessionID).Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n", reply)
	return nil
}

// sessionContext restores the saved context and applies the flags given on
// this run.
func sessionContext(ctx context.Context, a *app, opts *options) (models.SessionContext, error) {
	defaultBackend, _ := models.ParseBackendKind(a.cfg.Defaults.Backend)
	fallback := models.SessionContext{
		Backend:      defaultBackend,
		Model:        a.cfg.Defaults.Model,
		K:            a.cfg.RAG.RetrievedDocuments,
		MemoryLength: a.cfg.RAG.ChatMemoryLength,
	}
	sc, err := a.chat.LoadContext(ctx, fallback)
	if err != nil {
		return sc, err
	}
	sc.MemoryLength = a.cfg.RAG.ChatMemoryLength

	if opts.set["backend"] {
		kind, err := models.ParseBackendKind(opts.backend)
		if err != nil {
			return sc, err
		}
		if kind != sc.Backend {
			sc.Model = ""
		}
		sc.Backend = kind
	}
	if opts.set["model"] {
		sc.Model = opts.model
	}
	if opts.set["rag"] {
		sc.RAG = opts.rag
	}
	if opts.set["k"] {
		if opts.k <= 0 {
			return sc, fmt.Errorf("%w: k must be positive", models.ErrConfiguration)
		}
		sc.K = opts.k
	}

	switch {
	case opts.session != "":
		sc.SessionID = opts.session
	case opts.newSession || sc.SessionID == "":
		id, err := newSessionID(ctx, a)
		if err != nil {
			return sc, err
		}
		sc.SessionID = id
		log.Info().Str("session", sc.SessionID).Msg("Started new session")
	}
	return sc, nil
}

// newSessionID returns a timestamp key, or a UUID when that key is taken.
func newSessionID(ctx context.Context, a *app) (string, error) {
	key := helper.NewSessionKey(time.Now())
	ids, err := a.store.ListSessionIDs(ctx)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		if id == key {
			return helper.GenerateUUID()
		}
	}
	return key, nil
}

// chromemVectors returns the vector store when it supports export and import.
func chromemVectors(a *app) (*vectorstore.ChromemStore, error) {
	chromemStore, ok := a.vectors.(*vectorstore.ChromemStore)
	if !ok {
		return nil, fmt.Errorf("%w: export and import need the chromem vector store", models.ErrConfiguration)
	}
	return chromemStore, nil
}

func ingestFiles(ctx context.Context, a *app, paths []string) error {
	uploads, err := ingest.ReadUploads(paths)
	if err != nil {
		return err
	}
	report, err := a.pipeline.Ingest(ctx, uploads)
	if err != nil {
		return err
	}
	log.Info().
		Int("documents", report.Documents).
		Int("chunks", report.Chunks).
		Strs("failed", report.Failed).
		Int("stored", a.vectors.Count()).
		Msg("Knowledge base updated")
	return nil
}

func listSessions(ctx context.Context, a *app) error {
	ids, err := a.store.ListSessionIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func printHistory(ctx context.Context, a *app, sessionID string) error {
	msgs, err := a.store.LoadMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.Kind == models.KindBinary {
			fmt.Printf("[%s] <image, %d bytes>\n", m.Sender, len(m.Blob))
			continue
		}
		fmt.Printf("[%s] %s\n", m.Sender, m.Text)
	}
	return nil
}
