package service

import (
	"context"
	"testing"
	"time"

	"marginalia/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }
func strPtr(v string) *string { return &v }

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn                   func(context.Context, *models.Comment) error
	getByIDFn                  func(context.Context, uint) (*models.Comment, error)
	getByIDWithRepliesFn       func(context.Context, uint) (*models.Comment, error)
	listTopLevelByPostFn       func(context.Context, uint) ([]*models.Comment, error)
	listBySnippetFn            func(context.Context, uint) ([]*models.Comment, error)
	listInlineTopLevelAtLineFn func(context.Context, uint, int) ([]*models.Comment, error)
	updateFn                   func(context.Context, *models.Comment) error
	deleteFn                   func(context.Context, uint) error
	deleteByPostFn             func(context.Context, uint) error
	countOrphanedByPostFn      func(context.Context, uint, []uint) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) GetByIDWithReplies(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDWithRepliesFn(ctx, id)
}
func (s *commentRepoStub) ListTopLevelByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listTopLevelByPostFn(ctx, postID)
}
func (s *commentRepoStub) ListBySnippet(ctx context.Context, snippetID uint) ([]*models.Comment, error) {
	return s.listBySnippetFn(ctx, snippetID)
}
func (s *commentRepoStub) ListInlineTopLevelAtLine(ctx context.Context, snippetID uint, line int) ([]*models.Comment, error) {
	return s.listInlineTopLevelAtLineFn(ctx, snippetID, line)
}
func (s *commentRepoStub) Update(ctx context.Context, c *models.Comment) error {
	return s.updateFn(ctx, c)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *commentRepoStub) DeleteByPost(ctx context.Context, postID uint) error {
	return s.deleteByPostFn(ctx, postID)
}
func (s *commentRepoStub) CountOrphanedByPost(ctx context.Context, postID uint, live []uint) (int64, error) {
	return s.countOrphanedByPostFn(ctx, postID, live)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, c *models.Comment) error {
			c.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		getByIDWithRepliesFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id}, nil
		},
		listTopLevelByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		listBySnippetFn:      func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		listInlineTopLevelAtLineFn: func(_ context.Context, _ uint, _ int) ([]*models.Comment, error) {
			return nil, nil
		},
		updateFn:              func(_ context.Context, _ *models.Comment) error { return nil },
		deleteFn:              func(_ context.Context, _ uint) error { return nil },
		deleteByPostFn:        func(_ context.Context, _ uint) error { return nil },
		countOrphanedByPostFn: func(_ context.Context, _ uint, _ []uint) (int64, error) { return 0, nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn           func(context.Context, *models.Post) error
	getByIDFn          func(context.Context, uint) (*models.Post, error)
	getBySlugFn        func(context.Context, string) (*models.Post, error)
	getBareFn          func(context.Context, uint) (*models.Post, error)
	listFn             func(context.Context, int, int) ([]*models.Post, error)
	listByUserFn       func(context.Context, uint, int, int) ([]*models.Post, error)
	trendingFn         func(context.Context, time.Time, int) ([]*models.Post, error)
	searchFulltextFn   func(context.Context, string, int, int) ([]*models.Post, error)
	searchByTitleFn    func(context.Context, string, int, int) ([]*models.Post, error)
	searchByLanguageFn func(context.Context, string, int, int) ([]*models.Post, error)
	searchByTagSlugsFn func(context.Context, []string, int, int) ([]*models.Post, error)
	slugExistsFn       func(context.Context, string, uint) (bool, error)
	updateFn           func(context.Context, *models.Post) error
	deleteFn           func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *postRepoStub) GetBare(ctx context.Context, id uint) (*models.Post, error) {
	return s.getBareFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *postRepoStub) Trending(ctx context.Context, since time.Time, limit int) ([]*models.Post, error) {
	return s.trendingFn(ctx, since, limit)
}
func (s *postRepoStub) SearchFulltext(ctx context.Context, q string, limit, offset int) ([]*models.Post, error) {
	return s.searchFulltextFn(ctx, q, limit, offset)
}
func (s *postRepoStub) SearchByTitle(ctx context.Context, q string, limit, offset int) ([]*models.Post, error) {
	return s.searchByTitleFn(ctx, q, limit, offset)
}
func (s *postRepoStub) SearchByLanguage(ctx context.Context, l string, limit, offset int) ([]*models.Post, error) {
	return s.searchByLanguageFn(ctx, l, limit, offset)
}
func (s *postRepoStub) SearchByTagSlugs(ctx context.Context, slugs []string, limit, offset int) ([]*models.Post, error) {
	return s.searchByTagSlugsFn(ctx, slugs, limit, offset)
}
func (s *postRepoStub) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	return s.slugExistsFn(ctx, slug, excludeID)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post) error { return s.updateFn(ctx, p) }
func (s *postRepoStub) Delete(ctx context.Context, id uint) error        { return s.deleteFn(ctx, id) }

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, p *models.Post) error {
			p.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1}, nil
		},
		getBySlugFn: func(_ context.Context, _ string) (*models.Post, error) {
			return nil, gorm.ErrRecordNotFound
		},
		getBareFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 1}, nil
		},
		listFn:       func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		listByUserFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Post, error) { return nil, nil },
		trendingFn:   func(_ context.Context, _ time.Time, _ int) ([]*models.Post, error) { return nil, nil },
		searchFulltextFn: func(_ context.Context, _ string, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		searchByTitleFn: func(_ context.Context, _ string, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		searchByLanguageFn: func(_ context.Context, _ string, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		searchByTagSlugsFn: func(_ context.Context, _ []string, _, _ int) ([]*models.Post, error) {
			return nil, nil
		},
		slugExistsFn: func(_ context.Context, _ string, _ uint) (bool, error) { return false, nil },
		updateFn:     func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
	}
}

// snippetRepoStub is a stub for repository.SnippetRepository.
type snippetRepoStub struct {
	createManyFn          func(context.Context, []*models.Snippet) error
	getByIDFn             func(context.Context, uint) (*models.Snippet, error)
	listByPostFn          func(context.Context, uint) ([]*models.Snippet, error)
	deleteByPostFn        func(context.Context, uint) error
	createVersionsFn      func(context.Context, []*models.SnippetVersion) error
	countVersionsByPostFn func(context.Context, uint) (int64, error)
	maxVersionByPostFn    func(context.Context, uint) (int, error)
}

func (s *snippetRepoStub) CreateMany(ctx context.Context, snippets []*models.Snippet) error {
	return s.createManyFn(ctx, snippets)
}
func (s *snippetRepoStub) GetByID(ctx context.Context, id uint) (*models.Snippet, error) {
	return s.getByIDFn(ctx, id)
}
func (s *snippetRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Snippet, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *snippetRepoStub) DeleteByPost(ctx context.Context, postID uint) error {
	return s.deleteByPostFn(ctx, postID)
}
func (s *snippetRepoStub) CreateVersions(ctx context.Context, versions []*models.SnippetVersion) error {
	return s.createVersionsFn(ctx, versions)
}
func (s *snippetRepoStub) CountVersionsByPost(ctx context.Context, postID uint) (int64, error) {
	return s.countVersionsByPostFn(ctx, postID)
}
func (s *snippetRepoStub) MaxVersionByPost(ctx context.Context, postID uint) (int, error) {
	return s.maxVersionByPostFn(ctx, postID)
}

func noopSnippetRepo() *snippetRepoStub {
	return &snippetRepoStub{
		createManyFn: func(_ context.Context, _ []*models.Snippet) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Snippet, error) {
			return &models.Snippet{ID: id, PostID: 1, CodeText: "a\nb\nc\nd\ne\nf\n"}, nil
		},
		listByPostFn:          func(_ context.Context, _ uint) ([]*models.Snippet, error) { return nil, nil },
		deleteByPostFn:        func(_ context.Context, _ uint) error { return nil },
		createVersionsFn:      func(_ context.Context, _ []*models.SnippetVersion) error { return nil },
		countVersionsByPostFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		maxVersionByPostFn:    func(_ context.Context, _ uint) (int, error) { return 0, nil },
	}
}

// reactionRepoStub is a stub for repository.ReactionRepository.
type reactionRepoStub struct {
	getFn             func(context.Context, uint, string, uint, string) (*models.Reaction, error)
	createFn          func(context.Context, *models.Reaction) error
	deleteFn          func(context.Context, uint) error
	listFn            func(context.Context, string, uint) ([]*models.Reaction, error)
	countsFn          func(context.Context, string, uint) (map[string]int64, error)
	countFn           func(context.Context, string, uint, string) (int64, error)
	deleteForTargetFn func(context.Context, string, uint) error
}

func (s *reactionRepoStub) Get(ctx context.Context, userID uint, targetType string, targetID uint, reactionType string) (*models.Reaction, error) {
	return s.getFn(ctx, userID, targetType, targetID, reactionType)
}
func (s *reactionRepoStub) Create(ctx context.Context, r *models.Reaction) error {
	return s.createFn(ctx, r)
}
func (s *reactionRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *reactionRepoStub) List(ctx context.Context, targetType string, targetID uint) ([]*models.Reaction, error) {
	return s.listFn(ctx, targetType, targetID)
}
func (s *reactionRepoStub) Counts(ctx context.Context, targetType string, targetID uint) (map[string]int64, error) {
	return s.countsFn(ctx, targetType, targetID)
}
func (s *reactionRepoStub) Count(ctx context.Context, targetType string, targetID uint, reactionType string) (int64, error) {
	return s.countFn(ctx, targetType, targetID, reactionType)
}
func (s *reactionRepoStub) DeleteForTarget(ctx context.Context, targetType string, targetID uint) error {
	return s.deleteForTargetFn(ctx, targetType, targetID)
}

func noopReactionRepo() *reactionRepoStub {
	return &reactionRepoStub{
		getFn: func(_ context.Context, _ uint, _ string, _ uint, _ string) (*models.Reaction, error) {
			return nil, nil
		},
		createFn: func(_ context.Context, r *models.Reaction) error {
			r.ID = 1
			return nil
		},
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		listFn:   func(_ context.Context, _ string, _ uint) ([]*models.Reaction, error) { return nil, nil },
		countsFn: func(_ context.Context, _ string, _ uint) (map[string]int64, error) {
			return map[string]int64{}, nil
		},
		countFn:           func(_ context.Context, _ string, _ uint, _ string) (int64, error) { return 0, nil },
		deleteForTargetFn: func(_ context.Context, _ string, _ uint) error { return nil },
	}
}

// memoryReactionRepo keeps toggle state in memory for idempotence tests.
type memoryReactionRepo struct {
	*reactionRepoStub
}

func newMemoryReactionRepo() *memoryReactionRepo {
	var stored *models.Reaction
	var nextID uint = 1
	stub := noopReactionRepo()
	stub.getFn = func(_ context.Context, userID uint, targetType string, targetID uint, reactionType string) (*models.Reaction, error) {
		if stored != nil && stored.UserID == userID && stored.TargetType == targetType &&
			stored.TargetID == targetID && stored.Type == reactionType {
			return stored, nil
		}
		return nil, nil
	}
	stub.createFn = func(_ context.Context, r *models.Reaction) error {
		r.ID = nextID
		nextID++
		stored = r
		return nil
	}
	stub.deleteFn = func(_ context.Context, id uint) error {
		if stored != nil && stored.ID == id {
			stored = nil
		}
		return nil
	}
	stub.countFn = func(_ context.Context, _ string, _ uint, _ string) (int64, error) {
		if stored != nil {
			return 1, nil
		}
		return 0, nil
	}
	stub.countsFn = func(_ context.Context, _ string, _ uint) (map[string]int64, error) {
		if stored != nil {
			return map[string]int64{stored.Type: 1}, nil
		}
		return map[string]int64{}, nil
	}
	return &memoryReactionRepo{reactionRepoStub: stub}
}

// notificationRepoStub is a stub for repository.NotificationRepository.
type notificationRepoStub struct {
	createFn      func(context.Context, *models.Notification) error
	listByUserFn  func(context.Context, uint, int, int) ([]*models.Notification, error)
	countUnreadFn func(context.Context, uint) (int64, error)
	markReadFn    func(context.Context, uint, []uint) error
	markAllReadFn func(context.Context, uint) error
}

func (s *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}
func (s *notificationRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *notificationRepoStub) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.countUnreadFn(ctx, userID)
}
func (s *notificationRepoStub) MarkRead(ctx context.Context, userID uint, ids []uint) error {
	return s.markReadFn(ctx, userID, ids)
}
func (s *notificationRepoStub) MarkAllRead(ctx context.Context, userID uint) error {
	return s.markAllReadFn(ctx, userID)
}

func noopNotificationRepo() *notificationRepoStub {
	return &notificationRepoStub{
		createFn: func(_ context.Context, _ *models.Notification) error { return nil },
		listByUserFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Notification, error) {
			return nil, nil
		},
		countUnreadFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		markReadFn:    func(_ context.Context, _ uint, _ []uint) error { return nil },
		markAllReadFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	getFn            func(context.Context, uint, uint) (*models.Follow, error)
	createFn         func(context.Context, *models.Follow) error
	deleteFn         func(context.Context, uint) error
	countFollowersFn func(context.Context, uint) (int64, error)
	countFollowingFn func(context.Context, uint) (int64, error)
	listFollowersFn  func(context.Context, uint, int, int) ([]*models.Follow, error)
}

func (s *followRepoStub) Get(ctx context.Context, followerID, followingID uint) (*models.Follow, error) {
	return s.getFn(ctx, followerID, followingID)
}
func (s *followRepoStub) Create(ctx context.Context, f *models.Follow) error {
	return s.createFn(ctx, f)
}
func (s *followRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *followRepoStub) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowersFn(ctx, userID)
}
func (s *followRepoStub) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return s.countFollowingFn(ctx, userID)
}
func (s *followRepoStub) ListFollowers(ctx context.Context, userID uint, limit, offset int) ([]*models.Follow, error) {
	return s.listFollowersFn(ctx, userID, limit, offset)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		getFn:            func(_ context.Context, _, _ uint) (*models.Follow, error) { return nil, nil },
		createFn:         func(_ context.Context, _ *models.Follow) error { return nil },
		deleteFn:         func(_ context.Context, _ uint) error { return nil },
		countFollowersFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		countFollowingFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		listFollowersFn:  func(_ context.Context, _ uint, _, _ int) ([]*models.Follow, error) { return nil, nil },
	}
}

// bookmarkRepoStub is a stub for repository.BookmarkRepository.
type bookmarkRepoStub struct {
	getFn        func(context.Context, uint, uint) (*models.Bookmark, error)
	createFn     func(context.Context, *models.Bookmark) error
	deleteFn     func(context.Context, uint) error
	listByUserFn func(context.Context, uint, int, int) ([]*models.Bookmark, error)
}

func (s *bookmarkRepoStub) Get(ctx context.Context, userID, postID uint) (*models.Bookmark, error) {
	return s.getFn(ctx, userID, postID)
}
func (s *bookmarkRepoStub) Create(ctx context.Context, b *models.Bookmark) error {
	return s.createFn(ctx, b)
}
func (s *bookmarkRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *bookmarkRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Bookmark, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}

func noopBookmarkRepo() *bookmarkRepoStub {
	return &bookmarkRepoStub{
		getFn:        func(_ context.Context, _, _ uint) (*models.Bookmark, error) { return nil, nil },
		createFn:     func(_ context.Context, _ *models.Bookmark) error { return nil },
		deleteFn:     func(_ context.Context, _ uint) error { return nil },
		listByUserFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Bookmark, error) { return nil, nil },
	}
}

// tagRepoStub is a stub for repository.TagRepository.
type tagRepoStub struct {
	getOrCreateFn     func(context.Context, string) (*models.Tag, error)
	getBySlugFn       func(context.Context, string) (*models.Tag, error)
	listFn            func(context.Context) ([]*models.Tag, error)
	replacePostTagsFn func(context.Context, *models.Post, []*models.Tag) error
}

func (s *tagRepoStub) GetOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	return s.getOrCreateFn(ctx, name)
}
func (s *tagRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *tagRepoStub) List(ctx context.Context) ([]*models.Tag, error) { return s.listFn(ctx) }
func (s *tagRepoStub) ReplacePostTags(ctx context.Context, post *models.Post, tags []*models.Tag) error {
	return s.replacePostTagsFn(ctx, post, tags)
}

func noopTagRepo() *tagRepoStub {
	return &tagRepoStub{
		getOrCreateFn: func(_ context.Context, name string) (*models.Tag, error) {
			return &models.Tag{ID: 1, Name: name}, nil
		},
		getBySlugFn: func(_ context.Context, _ string) (*models.Tag, error) {
			return nil, gorm.ErrRecordNotFound
		},
		listFn:            func(_ context.Context) ([]*models.Tag, error) { return nil, nil },
		replacePostTagsFn: func(_ context.Context, _ *models.Post, _ []*models.Tag) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn     func(context.Context, *models.User) error
	getByIDFn    func(context.Context, uint) (*models.User, error)
	getByEmailFn func(context.Context, string) (*models.User, error)
	updateFn     func(context.Context, *models.User) error
}

func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Name: "user"}, nil
		},
		getByEmailFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		updateFn:     func(_ context.Context, _ *models.User) error { return nil },
	}
}

// recordingBroadcaster captures broadcast calls.
type recordingBroadcaster struct {
	postID        uint
	comment       *models.Comment
	socketID      string
	calls         int
	notifications []*models.Notification
}

func (b *recordingBroadcaster) BroadcastComment(_ context.Context, postID uint, comment *models.Comment, excludeSocketID string) {
	b.postID = postID
	b.comment = comment
	b.socketID = excludeSocketID
	b.calls++
}

func (b *recordingBroadcaster) BroadcastNotification(_ context.Context, _ uint, n *models.Notification) {
	b.notifications = append(b.notifications, n)
}

func newCommentServiceForTest(
	comments *commentRepoStub,
	posts *postRepoStub,
	snippets *snippetRepoStub,
	reactions *reactionRepoStub,
	inbox *notificationRepoStub,
	broadcaster Broadcaster,
) *CommentService {
	return NewCommentService(nil, comments, posts, snippets, reactions, inbox, broadcaster)
}
