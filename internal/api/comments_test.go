package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-sh/margin/internal/api"
	"github.com/margin-sh/margin/internal/comments"
)

func newTestClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, nil)
}

const commentPage = `{
	"count": 42,
	"results": [
		{
			"id": 11,
			"comment_content_json": {"ops":[{"insert":"first\n"}]},
			"comment_content_type": "QUILL_EDITOR",
			"comment_type": "GENERIC_COMMENT",
			"created_by": {
				"id": 7,
				"author_profile": {"id": 70, "first_name": "Ada", "last_name": "Lovelace"}
			},
			"created_date": "2026-08-01T10:00:00.000000Z",
			"score": 5,
			"user_vote": {"vote_type": 1},
			"children_count": 3,
			"children": [
				{
					"id": 12,
					"comment_content_json": {"ops":[{"insert":"nested\n"}]},
					"comment_content_type": "QUILL_EDITOR",
					"comment_type": "GENERIC_COMMENT",
					"is_public": true
				},
				{"id": 0}
			],
			"is_public": true
		},
		{
			"id": 13,
			"comment_content_json": {"ops":[{"insert":"review body\n"}]},
			"comment_content_type": "QUILL_EDITOR",
			"comment_type": "REVIEW",
			"review": {"score": 8},
			"is_public": true
		},
		{"id": 0}
	]
}`

func TestFetchComments(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(commentPage))
	}))

	res, err := client.FetchComments(context.Background(), comments.FetchRequest{
		DocumentID:  100,
		ContentType: "paper",
		Page:        2,
		PageSize:    15,
		Sort:        comments.SortBest,
	})
	require.NoError(t, err)

	assert.Equal(t, "/paper/100/comments/", gotPath)
	assert.Contains(t, gotQuery, "page=2")
	assert.Contains(t, gotQuery, "page_size=15")
	assert.Contains(t, gotQuery, "ordering=BEST")
	assert.Contains(t, gotQuery, "parent__isnull=true")

	assert.Equal(t, 42, res.Count)
	require.Len(t, res.Comments, 2, "zero-id records are skipped")

	first := res.Comments[0]
	assert.Equal(t, int64(11), first.ID.Remote)
	assert.Equal(t, "Ada Lovelace", first.Author.Name)
	assert.Equal(t, int64(7), first.Author.ID)
	assert.Equal(t, 5, first.Score)
	assert.Equal(t, comments.VoteUp, first.UserVote)
	assert.Equal(t, comments.KindComment, first.Kind)
	assert.Equal(t, 3, first.ChildCount)
	require.Len(t, first.Replies, 1, "malformed child is skipped")
	assert.Equal(t, int64(12), first.Replies[0].ID.Remote)
	assert.False(t, first.CreatedAt.IsZero())

	review := res.Comments[1]
	assert.Equal(t, comments.KindReview, review.Kind)
	assert.Equal(t, 8, review.ReviewScore)
	assert.Equal(t, comments.VoteNeutral, review.UserVote)
}

func TestFetchCommentsBountyFilter(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"count":0,"results":[]}`))
	}))

	_, err := client.FetchComments(context.Background(), comments.FetchRequest{
		DocumentID:  100,
		ContentType: "paper",
		Page:        1,
		PageSize:    15,
		Sort:        comments.SortNewest,
		Filter:      comments.KindBounty,
	})
	require.NoError(t, err)
	assert.Contains(t, gotQuery, "filtering=BOUNTY")
	assert.Contains(t, gotQuery, "ordering=CREATED_DATE")
}

func TestFetchReplies(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"count":1,"results":[{"id":21,"comment_content_json":{"ops":[]},"is_public":true}]}`))
	}))

	res, err := client.FetchReplies(context.Background(), comments.RepliesRequest{
		DocumentID:  100,
		ContentType: "researchhubpost",
		CommentID:   11,
		Page:        1,
		PageSize:    10,
		Sort:        comments.SortOldest,
	})
	require.NoError(t, err)
	assert.Equal(t, "/researchhubpost/100/comments/11/replies/", gotPath)
	require.Len(t, res.Comments, 1)
	assert.Equal(t, int64(21), res.Comments[0].ID.Remote)
}

func TestCreateComment(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"id":501,"comment_content_json":{"ops":[{"insert":"hello\n"}]},"comment_content_type":"QUILL_EDITOR","comment_type":"GENERIC_COMMENT","is_public":true}`))
	}))

	c, err := client.Create(context.Background(), comments.CreateRequest{
		DocumentID:  100,
		ContentType: "paper",
		Content:     comments.PlainContent("hello"),
		Kind:        comments.KindComment,
	})
	require.NoError(t, err)

	assert.Equal(t, "/paper/100/comments/create_rh_comment/", gotPath)
	assert.Equal(t, "QUILL_EDITOR", gotBody["comment_content_type"])
	assert.Equal(t, "GENERIC_COMMENT", gotBody["comment_type"])
	assert.NotContains(t, gotBody, "parent_id")
	assert.NotContains(t, gotBody, "review_score")
	assert.Equal(t, int64(501), c.ID.Remote)
}

func TestCreateReply(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"id":502,"is_public":true}`))
	}))

	_, err := client.Create(context.Background(), comments.CreateRequest{
		DocumentID:  100,
		ContentType: "paper",
		Content:     comments.PlainContent("reply"),
		Kind:        comments.KindComment,
		ParentID:    11,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(11), gotBody["parent_id"])
}

func TestCreateReview(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"id":503,"comment_type":"REVIEW","review":{"score":9},"is_public":true}`))
	}))

	c, err := client.Create(context.Background(), comments.CreateRequest{
		DocumentID:  100,
		ContentType: "paper",
		Content:     comments.PlainContent("solid methods"),
		Kind:        comments.KindReview,
		ReviewScore: 9,
	})
	require.NoError(t, err)
	assert.Equal(t, "REVIEW", gotBody["comment_type"])
	assert.Equal(t, float64(9), gotBody["review_score"])
	assert.Equal(t, 9, c.ReviewScore)
}

func TestCreateRejectsMissingID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := client.Create(context.Background(), comments.CreateRequest{
		DocumentID:  100,
		ContentType: "paper",
		Content:     comments.PlainContent("x"),
		Kind:        comments.KindComment,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id")
}

func TestUpdateComment(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"id":11,"comment_content_json":{"ops":[{"insert":"edited\n"}]},"is_public":true}`))
	}))

	c, err := client.Update(context.Background(), comments.UpdateRequest{
		DocumentID:  100,
		ContentType: "paper",
		CommentID:   11,
		Content:     comments.PlainContent("edited"),
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/paper/100/comments/11/update_rh_comment/", gotPath)
	assert.Equal(t, int64(11), c.ID.Remote)
}

func TestDeleteComment(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))

	err := client.Delete(context.Background(), comments.DeleteRequest{
		DocumentID:  100,
		ContentType: "paper",
		CommentID:   11,
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/paper/100/comments/11/", gotPath)
}

func TestVoteEndpoints(t *testing.T) {
	var gotPath string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))

	req := comments.VoteRequest{DocumentID: 100, ContentType: "paper", CommentID: 11}

	req.Vote = comments.VoteUp
	require.NoError(t, client.Vote(context.Background(), req))
	assert.Equal(t, "/paper/100/comments/11/upvote/", gotPath)

	req.Vote = comments.VoteNeutral
	require.NoError(t, client.Vote(context.Background(), req))
	assert.Equal(t, "/paper/100/comments/11/neutralvote/", gotPath)
}

func TestAuthTokenHeader(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"count":0,"results":[]}`))
	}))

	req := comments.FetchRequest{DocumentID: 1, ContentType: "paper", Page: 1, PageSize: 10, Sort: comments.SortBest}

	_, err := client.FetchComments(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, gotAuth)

	client.SetToken("secret-token")
	_, err = client.FetchComments(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Token secret-token", gotAuth)
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"count":0,"results":[]}`))
	}))

	_, err := client.FetchComments(context.Background(), comments.FetchRequest{
		DocumentID: 1, ContentType: "paper", Page: 1, PageSize: 10, Sort: comments.SortBest,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetStopsOnClientError(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.FetchComments(context.Background(), comments.FetchRequest{
		DocumentID: 1, ContentType: "paper", Page: 1, PageSize: 10, Sort: comments.SortBest,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not retry")

	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.False(t, se.Temporary())
}

func TestStatusErrorTemporary(t *testing.T) {
	assert.True(t, (&api.StatusError{Code: 429}).Temporary())
	assert.True(t, (&api.StatusError{Code: 500}).Temporary())
	assert.True(t, (&api.StatusError{Code: 503}).Temporary())
	assert.False(t, (&api.StatusError{Code: 400}).Temporary())
	assert.False(t, (&api.StatusError{Code: 403}).Temporary())
}

func TestMutationsDoNotRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Create(context.Background(), comments.CreateRequest{
		DocumentID:  100,
		ContentType: "paper",
		Content:     comments.PlainContent("x"),
		Kind:        comments.KindComment,
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchFeed(t *testing.T) {
	var gotPath, gotQuery string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"count":2,"results":[
			{"id":100,"content_type":"paper","title":"Sparse Attention","document_type":"PAPER","score":12,"discussion_count":4},
			{"id":0}
		]}`))
	}))

	docs, err := client.FetchFeed(context.Background(), api.FeedTrending, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, "/researchhub_unified_document/get_unified_documents/", gotPath)
	assert.Contains(t, gotQuery, "type=hot")
	require.Len(t, docs, 1)
	assert.Equal(t, "Sparse Attention", docs[0].Title)
	assert.Equal(t, int64(100), docs[0].ID)
}

func TestBatchFetchDocumentsKeepsOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/paper/1/":
			w.Write([]byte(`{"id":1,"title":"one"}`))
		case "/paper/3/":
			w.Write([]byte(`{"id":3,"title":"three"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	docs, err := client.BatchFetchDocuments(context.Background(), []api.DocRef{
		{ContentType: "paper", ID: 1},
		{ContentType: "paper", ID: 2},
		{ContentType: "paper", ID: 3},
	})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "one", docs[0].Title)
	assert.Nil(t, docs[1], "failed fetches leave a nil slot")
	assert.Equal(t, "three", docs[2].Title)
}
