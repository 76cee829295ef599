package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/upb/retrieval-plane/app"
	"github.com/upb/retrieval-plane/auth"
	"github.com/upb/retrieval-plane/config"
	"github.com/upb/retrieval-plane/internal/observability"
	"github.com/upb/retrieval-plane/models"
	"github.com/upb/retrieval-plane/services/providers"
	"github.com/upb/retrieval-plane/utils"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "retrievalctl",
		Short:         "Index and query local vector stores",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newActionsCmd(),
		newIndexCmd(),
		newRetrieveCmd(),
		newGenerateCmd(),
		newTokenCmd(),
	)
	return root
}

// withDependencies builds the application from the environment, runs fn and
// closes everything.
func withDependencies(ctx context.Context, fn func(deps *app.Dependencies) error) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return err
	}
	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(ctx)

	return fn(deps)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newActionsCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "actions",
		Short: "List registered actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k := providers.ActionKind(kind)
			if k != "" && !k.Valid() {
				return fmt.Errorf("unknown action kind %q", kind)
			}
			return withDependencies(cmd.Context(), func(deps *app.Dependencies) error {
				for _, a := range deps.Registry.List(k) {
					fmt.Fprintln(cmd.OutOrStdout(), a.Key)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list actions of this kind (model, embedder, retriever, indexer)")
	return cmd
}

func newIndexCmd() *cobra.Command {
	var indexer string

	cmd := &cobra.Command{
		Use:   "index <documents.json>",
		Short: "Embed and store documents",
		Long: `Reads a JSON array of documents, or an object with a "documents" array,
and hands it to an indexer action. Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readDocuments(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			req := &providers.IndexRequest{Documents: docs}
			if err := utils.ValidateStruct(req); err != nil {
				return err
			}

			return withDependencies(cmd.Context(), func(deps *app.Dependencies) error {
				index, err := deps.Registry.LookupIndexer(indexer)
				if err != nil {
					return err
				}
				resp, err := index(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&indexer, "indexer", "", "indexer action name, e.g. devLocalVectorStore/docs")
	_ = cmd.MarkFlagRequired("indexer")
	return cmd
}

func readDocuments(stdin io.Reader, path string) ([]models.Document, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var docs []models.Document
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("invalid documents file: %w", err)
		}
		return docs, nil
	}

	var wrapped providers.IndexRequest
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("invalid documents file: %w", err)
	}
	return wrapped.Documents, nil
}

func newRetrieveCmd() *cobra.Command {
	var (
		retriever string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "retrieve <query text>",
		Short: "Return the documents closest to a text query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &providers.RetrieveRequest{
				Query: models.NewTextDocument(strings.Join(args, " "), nil),
			}
			if cmd.Flags().Changed("limit") {
				req.Options.Limit = &limit
			}

			return withDependencies(cmd.Context(), func(deps *app.Dependencies) error {
				retrieve, err := deps.Registry.LookupRetriever(retriever)
				if err != nil {
					return err
				}
				resp, err := retrieve(cmd.Context(), req)
				if err != nil {
					return err
				}
				if resp.Documents == nil {
					resp.Documents = []models.Document{}
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&retriever, "retriever", "", "retriever action name, e.g. devLocalVectorStore/docs")
	cmd.Flags().IntVar(&limit, "limit", 0, "number of documents to return (default 3)")
	_ = cmd.MarkFlagRequired("retriever")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var (
		model       string
		system      string
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Send a single prompt to a model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &providers.GenerateRequest{}
			if system != "" {
				req.Messages = append(req.Messages, providers.Message{
					Role:    providers.RoleSystem,
					Content: []models.Part{models.TextPart(system)},
				})
			}
			req.Messages = append(req.Messages, providers.Message{
				Role:    providers.RoleUser,
				Content: []models.Part{models.TextPart(strings.Join(args, " "))},
			})
			if cmd.Flags().Changed("temperature") {
				req.Config.Temperature = &temperature
			}

			return withDependencies(cmd.Context(), func(deps *app.Dependencies) error {
				generate, err := deps.Registry.LookupModel(model)
				if err != nil {
					return err
				}
				resp, err := generate(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "model action name, e.g. ollama/llama3")
	cmd.Flags().StringVar(&system, "system", "", "optional system instruction")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func newTokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
		scopes  []string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for the gateway's /v1 API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not set")
			}
			token, err := auth.SignToken(auth.Config{
				Secret:   cfg.Auth.JWTSecret,
				Issuer:   cfg.Auth.Issuer,
				Audience: cfg.Auth.Audience,
			}, subject, ttl, scopes...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes to grant")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
