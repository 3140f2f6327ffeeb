package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mike-a-ellis/pdfqa-mcp/internal/app"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/document"
	ghclient "github.com/mike-a-ellis/pdfqa-mcp/internal/github"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/indexer"
	"github.com/mike-a-ellis/pdfqa-mcp/internal/pipeline"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>...",
	Short: "Extract, index and register one or more PDFs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				start := time.Now()
				doc, err := a.Service.Upload(ctx, data, filepath.Base(path), owner)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				printf(cmd, "%s  %s  (%d units: %d text, %d tables, %d images) in %s\n",
					doc.ID, doc.Filename, doc.ChunkCount, doc.TextCount, doc.TableCount, doc.ImageCount,
					time.Since(start).Round(time.Millisecond))
			}
			return nil
		})
	},
}

var (
	askDocs    []string
	askHistory string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about uploaded PDFs",
	Long: `Ask a question grounded in the selected documents.

--history points at a JSON array of {"role","content"} objects, oldest first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := readHistory(askHistory)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			resp, err := a.Service.Chat(ctx, pipeline.ChatRequest{
				Query:       strings.Join(args, " "),
				DocumentIDs: askDocs,
				History:     history,
				Owner:       owner,
			})
			if err != nil {
				return err
			}
			if askJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}

			printf(cmd, "%s\n", resp.Response)
			if len(resp.Sources) > 0 {
				printf(cmd, "\nSources (%s):\n", resp.Mode)
				for _, s := range resp.Sources {
					printf(cmd, "  - %s: pages %s\n", s.DocumentName, formatPages(s.Pages))
				}
			}
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded PDFs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			docs, err := a.Service.List(ctx, owner)
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				printf(cmd, "No documents.\n")
				return nil
			}
			for _, d := range docs {
				printf(cmd, "%s  %-40s %8d bytes  %4d units  %s\n",
					d.ID, d.Filename, d.SizeBytes, d.ChunkCount, d.UploadedAt.Local().Format(time.DateTime))
			}
			return nil
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a PDF with its index and images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			found, err := a.Service.Delete(ctx, args[0], owner)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("document %s not found", args[0])
			}
			printf(cmd, "Deleted %s\n", args[0])
			return nil
		})
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <document-id> <new-name>",
	Short: "Change the display name of a PDF (requires --owner)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			found, err := a.Service.Rename(ctx, args[0], args[1], owner)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("document %s not found", args[0])
			}
			printf(cmd, "Renamed %s to %s\n", args[0], args[1])
			return nil
		})
	},
}

var importPath string

var importCmd = &cobra.Command{
	Use:   "import-github <owner/repo>",
	Short: "Upload every PDF under a GitHub repository path",
	Long: `Lists every .pdf below --path in the repository and uploads each one.

Failures are reported per file and do not stop the import.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	askCmd.Flags().StringSliceVarP(&askDocs, "doc", "d", nil, "document id to search (repeatable)")
	askCmd.Flags().StringVar(&askHistory, "history", "", "JSON file with prior conversation turns")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full response as JSON")
	importCmd.Flags().StringVar(&importPath, "path", "", "directory within the repository (default: root)")
}

func runImport(cmd *cobra.Command, args []string) error {
	repoOwner, repo, err := ghclient.ParseRepo(args[0])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		start := time.Now()
		printf(cmd, "Importing PDFs from %s/%s...\n\n", repoOwner, repo)

		gh, err := ghclient.NewClient(a.Config.GitHubToken)
		if err != nil {
			return fmt.Errorf("create GitHub client: %w", err)
		}
		fetcher := ghclient.NewFetcher(gh, repoOwner, repo, importPath)
		importer := indexer.NewImporter(fetcher, a.Service, owner, a.Config.MaxFileSize(), pipeline.PublicMessage, a.Logger)

		result, err := importer.ImportAll(ctx)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		printf(cmd, "Import complete!\n")
		printf(cmd, "  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
		printf(cmd, "  Units: %d\n", result.TotalUnits)
		printf(cmd, "  Duration: %s\n", result.Duration.Round(time.Second))
		printf(cmd, "  Commit: %s\n", result.CommitSHA)

		if len(result.Imported) > 0 {
			printf(cmd, "\nImported:\n")
			for _, d := range result.Imported {
				printf(cmd, "  %s  %s\n", d.DocumentID, d.Path)
			}
		}
		if len(result.FailedDocs) > 0 {
			printf(cmd, "\nFailed documents:\n")
			for _, failed := range result.FailedDocs {
				printf(cmd, "  - %s: %s\n", failed.Path, failed.Reason)
			}
		}

		printf(cmd, "\nTotal time: %s\n", time.Since(start).Round(time.Second))
		return nil
	})
}

type historyTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func readHistory(path string) ([]document.Turn, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var turns []historyTurn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parse history %s: %w", path, err)
	}
	history := make([]document.Turn, 0, len(turns))
	for _, t := range turns {
		role := document.Role(strings.ToLower(t.Role))
		if role != document.RoleUser && role != document.RoleAssistant {
			return nil, fmt.Errorf("history turn has unknown role %q", t.Role)
		}
		history = append(history, document.Turn{Role: role, Content: t.Content})
	}
	return history, nil
}

// formatPages renders [1 2 3 5] as "1-3, 5".
func formatPages(pages []int) string {
	if len(pages) == 0 {
		return "-"
	}
	var parts []string
	for i := 0; i < len(pages); {
		j := i
		for j+1 < len(pages) && pages[j+1] == pages[j]+1 {
			j++
		}
		if j > i {
			parts = append(parts, fmt.Sprintf("%d-%d", pages[i], pages[j]))
		} else {
			parts = append(parts, fmt.Sprintf("%d", pages[i]))
		}
		i = j + 1
	}
	return strings.Join(parts, ", ")
}
