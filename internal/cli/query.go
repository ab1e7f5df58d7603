package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/x-research-team/post-query/bus/query"
	"github.com/x-research-team/post-query/readmodel"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func newQueryCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "query <all|id|author|comments|likes> [аргумент]",
		Short: "Выполнить один запрос к модели чтения",
		Long: `Выполняет один запрос через шину и печатает результат.

  all             все посты
  id <uuid>       пост по идентификатору
  author <имя>    посты автора, с учетом регистра
  comments        посты с комментариями
  likes <порог>   посты, у которых лайков не меньше порога`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseQuery(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, a.cfg.Store, a.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			dispatcher, err := readmodel.NewDispatcher(store, query.WithLogger[[]readmodel.PostEntity](a.logger))
			if err != nil {
				return err
			}

			posts, err := dispatcher.Send(ctx, q)
			if err != nil {
				return fmt.Errorf("запрос %s не выполнен: %w", q.Kind(), err)
			}

			switch output {
			case outputJSON:
				return renderJSON(cmd.OutOrStdout(), posts)
			case outputTable:
				renderPosts(cmd.OutOrStdout(), posts)
				return nil
			}
			return fmt.Errorf("неизвестный формат вывода: %q", output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "формат вывода: table, json")
	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{outputTable, outputJSON}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// parseQuery строит вариант запроса из аргументов командной строки.
func parseQuery(args []string) (query.Query, error) {
	name, arg := args[0], ""
	if len(args) > 1 {
		arg = args[1]
	}

	needArg := func() error {
		if len(args) != 2 {
			return fmt.Errorf("запрос %s требует аргумент", name)
		}
		return nil
	}
	noArg := func() error {
		if len(args) != 1 {
			return fmt.Errorf("запрос %s не принимает аргументов", name)
		}
		return nil
	}

	switch name {
	case "all":
		return readmodel.FindAllPosts{}, noArg()
	case "comments":
		return readmodel.FindPostsWithComments{}, noArg()
	case "id":
		if err := needArg(); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("некорректный идентификатор поста %q: %w", arg, err)
		}
		return readmodel.FindPostByID{ID: id}, nil
	case "author":
		if err := needArg(); err != nil {
			return nil, err
		}
		return readmodel.FindPostsByAuthor{Author: arg}, nil
	case "likes":
		if err := needArg(); err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("некорректный порог лайков %q: %w", arg, err)
		}
		return readmodel.FindPostsWithLikes{NumberOfLikes: n}, nil
	}
	return nil, fmt.Errorf("неизвестный запрос %q: ожидается all, id, author, comments или likes", name)
}

func renderPosts(w io.Writer, posts []readmodel.PostEntity) {
	if len(posts) == 0 {
		_, _ = fmt.Fprintln(w, "(0 posts)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Author", "Likes", "Comments", "Posted", "Message"})
	for _, p := range posts {
		t.AppendRow(table.Row{
			p.PostID.String(),
			p.Author,
			p.Likes,
			len(p.Comments),
			p.DatePosted.UTC().Format(time.RFC3339),
			truncate(p.Message, 40),
		})
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d posts)\n", len(posts))
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
