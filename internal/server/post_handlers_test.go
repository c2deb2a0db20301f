package server

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	app, _ := newTestApp(t)
	token, userID := registerUser(t, app, "ada")

	t.Run("requires auth", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", "", fiber.Map{"title": "x"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("mirrors code blocks into snippets", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", token, fiber.Map{
			"title": "Reviewing a loop",
			"body": []fiber.Map{
				{"type": "text", "content": "Look at this."},
				{"type": "code", "language": "go", "content": "for {\n}\n"},
				{"type": "text", "content": "Thoughts?"},
				{"type": "code", "language": "python", "content": "pass\n"},
			},
			"tags": []string{"Go", "Review"},
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		body := decodeJSON(t, resp)
		assert.Equal(t, float64(userID), body["user_id"])
		assert.Equal(t, "reviewing-a-loop", body["slug"])

		snippets := body["snippets"].([]interface{})
		require.Len(t, snippets, 2)
		first := snippets[0].(map[string]interface{})
		second := snippets[1].(map[string]interface{})
		assert.Equal(t, float64(1), first["block_index"])
		assert.Equal(t, "go", first["language"])
		assert.Equal(t, float64(3), second["block_index"])

		tags := body["tags"].([]interface{})
		assert.Len(t, tags, 2)
	})

	t.Run("slug collisions get numeric suffixes", func(t *testing.T) {
		for _, want := range []string{"same-title", "same-title-1", "same-title-2"} {
			resp := doJSON(t, app, http.MethodPost, "/api/posts", token, fiber.Map{
				"title": "Same Title",
				"body":  []fiber.Map{{"type": "text", "content": "hi"}},
			})
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			body := decodeJSON(t, resp)
			assert.Equal(t, want, body["slug"])
		}
	})

	t.Run("empty body is rejected", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/posts", token, fiber.Map{
			"title": "No body",
			"body":  []fiber.Map{},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}

func TestGetPost(t *testing.T) {
	app, _ := newTestApp(t)
	token, _ := registerUser(t, app, "ada")
	postID, _ := createPostViaAPI(t, app, token, "Slug or ID", "go", "package main\n")

	t.Run("by id", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts/1", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON(t, resp)
		assert.Equal(t, float64(postID), body["id"])
	})

	t.Run("by slug", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts/slug-or-id", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON(t, resp)
		assert.Equal(t, float64(postID), body["id"])
	})

	t.Run("missing post is a 404", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/posts/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUpdatePost(t *testing.T) {
	app, _ := newTestApp(t)
	author, _ := registerUser(t, app, "ada")
	other, _ := registerUser(t, app, "lin")
	postID, snippetID := createPostViaAPI(t, app, author, "Editable", "go", "a\nb\n")

	t.Run("only the author may update", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPut, "/api/posts/1", other, fiber.Map{
			"title": "Hijacked",
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("body edit recreates snippets and reports orphans", func(t *testing.T) {
		// Anchor an inline comment to the current snippet first.
		resp := doJSON(t, app, http.MethodPost, "/api/posts/1/inline-comments", author, fiber.Map{
			"snippet_id": snippetID,
			"start_line": 1,
			"end_line":   1,
			"body":       "about to be orphaned",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp = doJSON(t, app, http.MethodPut, "/api/posts/1", author, fiber.Map{
			"body": []fiber.Map{
				{"type": "code", "language": "go", "content": "c\nd\n"},
			},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON(t, resp)
		assert.Equal(t, float64(1), body["orphaned_comments"])

		post := body["post"].(map[string]interface{})
		snippets := post["snippets"].([]interface{})
		require.Len(t, snippets, 1)
		fresh := snippets[0].(map[string]interface{})
		assert.NotEqual(t, float64(snippetID), fresh["id"])
		assert.Equal(t, float64(postID), fresh["post_id"])
	})
}

func TestDeletePost(t *testing.T) {
	app, _ := newTestApp(t)
	token, _ := registerUser(t, app, "ada")
	createPostViaAPI(t, app, token, "Doomed", "go", "x\n")

	resp := doJSON(t, app, http.MethodDelete, "/api/posts/1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/posts/1", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchPosts(t *testing.T) {
	app, _ := newTestApp(t)
	token, _ := registerUser(t, app, "ada")
	createPostViaAPI(t, app, token, "Goroutine leak hunt", "go", "go func(){}()\n")
	createPostViaAPI(t, app, token, "Pandas groupby", "python", "df.groupby('a')\n")

	t.Run("requires a filter", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/search", "", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("by title query", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/search?q=goroutine", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON(t, resp)
		posts := body["posts"].([]interface{})
		require.Len(t, posts, 1)
		assert.Equal(t, "Goroutine leak hunt", posts[0].(map[string]interface{})["title"])
	})

	t.Run("by snippet language", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodGet, "/api/search?language=python", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body := decodeJSON(t, resp)
		posts := body["posts"].([]interface{})
		require.Len(t, posts, 1)
		assert.Equal(t, "Pandas groupby", posts[0].(map[string]interface{})["title"])
	})
}
