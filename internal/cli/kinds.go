package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/x-research-team/post-query/bus/query"
	"github.com/x-research-team/post-query/readmodel"
	"github.com/x-research-team/post-query/readstore/memory"
	"github.com/x-research-team/post-query/transport/rest"
)

// routes - HTTP-маршрут для каждого варианта запроса.
var routes = map[query.Kind]string{
	readmodel.KindAllPosts:          rest.BasePath + "/",
	readmodel.KindPostByID:          rest.BasePath + "/byId/{postId}",
	readmodel.KindPostsByAuthor:     rest.BasePath + "/byAuthor/{author}",
	readmodel.KindPostsWithComments: rest.BasePath + "/withComments",
	readmodel.KindPostsWithLikes:    rest.BasePath + "/withLikes/{numberOfLikes}",
}

func newKindsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "Показать проверенную таблицу диспетчеризации",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Полнота таблицы не зависит от хранилища.
			dispatcher, err := readmodel.NewDispatcher(memory.NewStore(), query.WithLogger[[]readmodel.PostEntity](a.logger))
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Kind", "Route"})
			for _, kind := range dispatcher.Kinds() {
				t.AppendRow(table.Row{kind.String(), "GET " + routes[kind]})
			}
			t.Render()
			return nil
		},
	}
}
