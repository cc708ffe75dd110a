package graph

import (
	"net/http"

	"github.com/graphql-go/graphql"
	gqlhandler "github.com/graphql-go/handler"
)

// NewHTTPHandler はGraphQLエンドポイントのHTTPハンドラーを返す。
// リクエストのコンテキスト（Principal含む）はそのままリゾルバーに渡される。
func NewHTTPHandler(schema graphql.Schema, enableGraphiQL bool) http.Handler {
	return gqlhandler.New(&gqlhandler.Config{
		Schema:   &schema,
		Pretty:   false,
		GraphiQL: enableGraphiQL,
	})
}
