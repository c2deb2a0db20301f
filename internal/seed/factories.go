// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"marginalia/internal/models"
	"marginalia/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// MaxDays spreads created_at timestamps over the past N days.
	MaxDays int
	// SkipBcrypt stores a plaintext password to speed up large runs.
	// Seeded accounts cannot log in when this is set.
	SkipBcrypt bool
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// slug collision counter per base slug
	slugSeen map[string]int
}

// NewFactory creates a Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:       db,
		opts:     opts,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		slugSeen: map[string]int{},
	}
}

// snippetTemplates holds short, plausible code blocks per language so the
// seeded feed looks like real review material instead of lorem ipsum.
var snippetTemplates = map[string][]string{
	"go": {
		"func sum(xs []int) int {\n\ttotal := 0\n\tfor _, x := range xs {\n\t\ttotal += x\n\t}\n\treturn total\n}\n",
		"ch := make(chan int, 8)\ngo func() {\n\tdefer close(ch)\n\tfor i := 0; i < 8; i++ {\n\t\tch <- i\n\t}\n}()\n",
		"if err := row.Scan(&id, &name); err != nil {\n\treturn fmt.Errorf(\"scan user: %w\", err)\n}\n",
	},
	"python": {
		"def chunks(xs, n):\n    for i in range(0, len(xs), n):\n        yield xs[i:i+n]\n",
		"with open(path) as fh:\n    for line in fh:\n        process(line.rstrip())\n",
	},
	"javascript": {
		"const seen = new Set();\nconst unique = items.filter((x) => {\n  if (seen.has(x.id)) return false;\n  seen.add(x.id);\n  return true;\n});\n",
		"async function retry(fn, attempts = 3) {\n  for (let i = 0; i < attempts; i++) {\n    try { return await fn(); } catch (e) { /* backoff */ }\n  }\n  throw new Error('exhausted');\n}\n",
	},
	"sql": {
		"SELECT user_id, COUNT(*) AS posts\nFROM posts\nGROUP BY user_id\nHAVING COUNT(*) > 10;\n",
	},
	"rust": {
		"let evens: Vec<i32> = (0..20).filter(|n| n % 2 == 0).collect();\n",
	},
}

var seedTags = []string{
	"Go", "Python", "JavaScript", "Rust", "SQL", "Performance",
	"Concurrency", "Refactoring", "Testing", "Security", "API Design",
}

func (f *Factory) randomLanguage() string {
	languages := make([]string, 0, len(snippetTemplates))
	for lang := range snippetTemplates {
		languages = append(languages, lang)
	}
	// map order is random but not deterministic enough across calls
	sortStrings(languages)
	return languages[f.rng.Intn(len(languages))]
}

func sortStrings(xs []string) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j] < xs[j-1]; j-- {
			xs[j], xs[j-1] = xs[j-1], xs[j]
		}
	}
}

func (f *Factory) randomSnippet(language string) string {
	pool := snippetTemplates[language]
	return pool[f.rng.Intn(len(pool))]
}

// pastTime returns a timestamp spread over the past MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Name:      gofakeit.Name(),
		Email:     fmt.Sprintf("%d.%s", gofakeit.Number(100, 999), gofakeit.Email()),
		Bio:       gofakeit.Sentence(10),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		CreatedAt: f.pastTime(),
	}

	if f.opts.SkipBcrypt {
		user.Password = "not-a-real-hash"
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateTag persists a tag, reusing an existing row with the same slug.
func (f *Factory) CreateTag(name string) (*models.Tag, error) {
	tag := &models.Tag{}
	err := f.db.Where(models.Tag{Slug: validation.Slugify(name)}).
		Attrs(models.Tag{Name: name}).
		FirstOrCreate(tag).Error
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// uniqueSlug appends a numeric suffix when the base slug was already
// handed out during this run.
func (f *Factory) uniqueSlug(title string) string {
	base := validation.Slugify(title)
	n := f.slugSeen[base]
	f.slugSeen[base] = n + 1
	if n == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, n)
}

// CreatePost constructs and persists a post with a mixed text and code
// body. Each code block is mirrored into a snippet row the same way the
// post service does it.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	title := strings.TrimSuffix(gofakeit.Sentence(f.rng.Intn(4)+3), ".")
	numBlocks := f.rng.Intn(3)*2 + 2 // 2, 4 or 6 blocks, alternating

	body := make(models.PostBody, 0, numBlocks)
	for i := 0; i < numBlocks; i++ {
		if i%2 == 0 {
			body = append(body, models.Block{
				Type:    models.BlockTypeText,
				Content: gofakeit.Paragraph(1, 3, 8, " "),
			})
		} else {
			lang := f.randomLanguage()
			body = append(body, models.Block{
				Type:     models.BlockTypeCode,
				Language: lang,
				Content:  f.randomSnippet(lang),
			})
		}
	}

	post := &models.Post{
		UserID:     user.ID,
		Title:      title,
		Slug:       f.uniqueSlug(title),
		Body:       body,
		Visibility: models.VisibilityPublic,
		CreatedAt:  f.pastTime(),
	}

	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}

	for i, block := range post.Body {
		if !block.IsCode() {
			continue
		}
		snippet := models.Snippet{
			PostID:     post.ID,
			Language:   block.Language,
			CodeText:   block.Content,
			BlockIndex: i,
			CreatedAt:  post.CreatedAt,
		}
		if err := f.db.Create(&snippet).Error; err != nil {
			return nil, err
		}
		post.Snippets = append(post.Snippets, snippet)
	}

	return post, nil
}

// CreateComment persists a top-level discussion comment on the post.
func (f *Factory) CreateComment(user *models.User, post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		UserID:    user.ID,
		PostID:    post.ID,
		Body:      gofakeit.Sentence(f.rng.Intn(10) + 4),
		CreatedAt: post.CreatedAt.Add(time.Duration(f.rng.Intn(600)+1) * time.Minute),
	}

	for _, override := range overrides {
		override(comment)
	}

	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateInlineComment anchors a comment on a random line of the snippet.
func (f *Factory) CreateInlineComment(user *models.User, post *models.Post, snippet *models.Snippet, overrides ...func(*models.Comment)) (*models.Comment, error) {
	lineCount := strings.Count(snippet.CodeText, "\n")
	if !strings.HasSuffix(snippet.CodeText, "\n") {
		lineCount++
	}
	if lineCount < 1 {
		lineCount = 1
	}
	line := f.rng.Intn(lineCount) + 1

	return f.CreateComment(user, post, func(c *models.Comment) {
		c.SnippetID = &snippet.ID
		c.IsInline = true
		c.StartLine = &line
		c.EndLine = &line
		for _, override := range overrides {
			override(c)
		}
	})
}

// CreateReply persists a reply under the given parent comment. Inline
// replies inherit the parent's anchor.
func (f *Factory) CreateReply(user *models.User, parent *models.Comment) (*models.Comment, error) {
	post := &models.Post{ID: parent.PostID}
	return f.CreateComment(user, post, func(c *models.Comment) {
		c.ParentID = &parent.ID
		c.SnippetID = parent.SnippetID
		c.IsInline = parent.IsInline
		c.StartLine = parent.StartLine
		c.EndLine = parent.EndLine
		c.CreatedAt = parent.CreatedAt.Add(time.Duration(f.rng.Intn(120)+1) * time.Minute)
	})
}

// CreateReaction persists a reaction from user on a post or comment.
func (f *Factory) CreateReaction(user *models.User, targetType string, targetID uint) error {
	kinds := make([]string, 0, len(models.ReactionTypes))
	for kind := range models.ReactionTypes {
		kinds = append(kinds, kind)
	}
	sortStrings(kinds)

	reaction := &models.Reaction{
		UserID:     user.ID,
		TargetType: targetType,
		TargetID:   targetID,
		Type:       kinds[f.rng.Intn(len(kinds))],
	}
	return f.db.Create(reaction).Error
}

// CreateFollow persists a follow edge between two users.
func (f *Factory) CreateFollow(follower, following *models.User) error {
	if follower.ID == following.ID {
		return nil
	}
	edge := &models.Follow{FollowerID: follower.ID, FollowingID: following.ID}
	return f.db.Create(edge).Error
}

// CreateBookmark persists a bookmark from user on post.
func (f *Factory) CreateBookmark(user *models.User, post *models.Post) error {
	bookmark := &models.Bookmark{UserID: user.ID, PostID: post.ID}
	return f.db.Create(bookmark).Error
}

// CreateNotification persists an unread inbox row for the comment.
func (f *Factory) CreateNotification(recipient uint, kind string, comment *models.Comment) error {
	notification := &models.Notification{
		UserID: recipient,
		Type:   kind,
		Payload: models.JSONMap{
			"comment_id": comment.ID,
			"post_id":    comment.PostID,
			"actor_id":   comment.UserID,
		},
		CreatedAt: comment.CreatedAt,
	}
	if err := f.db.Create(notification).Error; err != nil {
		log.Printf("seed notification for user %d: %v", recipient, err)
	}
	return nil
}
