package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"marginalia/internal/models"

	"gorm.io/gorm"
)

// Seeder orchestrates a full demo-data run: users, tagged posts with
// code snippets, inline review threads and the social mesh around them.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder for the given database.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, opts: opts, factory: NewFactory(db, opts)}
}

// Run populates the database with demo data.
func (s *Seeder) Run() error {
	log.Printf("Seeding %d users and %d posts...", s.opts.NumUsers, s.opts.NumPosts)

	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			log.Printf("Warning: could not clear all existing data: %v", err)
		}
	}

	users, err := s.createUsers()
	if err != nil {
		return fmt.Errorf("create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	tags, err := s.createTags()
	if err != nil {
		return fmt.Errorf("create tags: %w", err)
	}

	posts, err := s.createPosts(users, tags)
	if err != nil {
		return fmt.Errorf("create posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	if err := s.createReviewActivity(users, posts); err != nil {
		return fmt.Errorf("create review activity: %w", err)
	}

	if err := s.createSocialMesh(users, posts); err != nil {
		return fmt.Errorf("create social mesh: %w", err)
	}

	log.Println("Seeding complete")
	return nil
}

// ClearAll removes all seeded rows. Order matters for foreign keys.
func (s *Seeder) ClearAll() error {
	tables := []string{
		"notifications", "reactions", "bookmarks", "follows",
		"comments", "snippet_versions", "snippets", "post_tags",
		"posts", "tags", "users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) createUsers() ([]*models.User, error) {
	users := make([]*models.User, 0, s.opts.NumUsers)

	// A couple of stable accounts so developers have known logins.
	for _, fixed := range []struct{ name, email string }{
		{"Ada Dev", "ada@example.com"},
		{"Lin Reviewer", "lin@example.com"},
	} {
		if len(users) >= s.opts.NumUsers {
			break
		}
		user, err := s.factory.CreateUser(func(u *models.User) {
			u.Name = fixed.name
			u.Email = fixed.email
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	for i := len(users); i < s.opts.NumUsers; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			log.Printf("skipping user %d: %v", i, err)
			continue
		}
		users = append(users, user)
		if i > 0 && i%100 == 0 {
			log.Printf("created %d users...", i)
		}
	}

	if len(users) == 0 {
		return nil, fmt.Errorf("no users created")
	}
	return users, nil
}

func (s *Seeder) createTags() ([]*models.Tag, error) {
	tags := make([]*models.Tag, 0, len(seedTags))
	for _, name := range seedTags {
		tag, err := s.factory.CreateTag(name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *Seeder) createPosts(users []*models.User, tags []*models.Tag) ([]*models.Post, error) {
	rng := s.factory.rng
	posts := make([]*models.Post, 0, s.opts.NumPosts)

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[rng.Intn(len(users))]
		post, err := s.factory.CreatePost(author)
		if err != nil {
			return nil, err
		}

		for _, tag := range pickTags(rng.Intn(3), tags, rng) {
			if err := s.db.Model(post).Association("Tags").Append(tag); err != nil {
				return nil, err
			}
		}

		posts = append(posts, post)
		if i > 0 && i%100 == 0 {
			log.Printf("created %d posts...", i)
		}
	}

	return posts, nil
}

func pickTags(n int, tags []*models.Tag, rng *rand.Rand) []*models.Tag {
	picked := make([]*models.Tag, 0, n)
	seen := map[uint]bool{}
	for len(picked) < n && len(seen) < len(tags) {
		tag := tags[rng.Intn(len(tags))]
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		picked = append(picked, tag)
	}
	return picked
}

// createReviewActivity attaches discussion comments and inline review
// threads to roughly two thirds of the posts.
func (s *Seeder) createReviewActivity(users []*models.User, posts []*models.Post) error {
	rng := s.factory.rng
	var comments, threads int

	for _, post := range posts {
		if rng.Intn(3) == 0 {
			continue
		}

		// Top-level discussion, sometimes with a reply.
		commenter := users[rng.Intn(len(users))]
		comment, err := s.factory.CreateComment(commenter, post)
		if err != nil {
			return err
		}
		comments++
		if comment.UserID != post.UserID {
			_ = s.factory.CreateNotification(post.UserID, models.NotificationCommentOnPost, comment)
		}
		if rng.Intn(2) == 0 {
			replier := users[rng.Intn(len(users))]
			reply, err := s.factory.CreateReply(replier, comment)
			if err != nil {
				return err
			}
			comments++
			if reply.UserID != comment.UserID {
				_ = s.factory.CreateNotification(comment.UserID, models.NotificationReplyToComment, reply)
			}
		}

		// Inline threads on the post's snippets.
		for i := range post.Snippets {
			if rng.Intn(2) == 0 {
				continue
			}
			reviewer := users[rng.Intn(len(users))]
			inline, err := s.factory.CreateInlineComment(reviewer, post, &post.Snippets[i])
			if err != nil {
				return err
			}
			threads++
			if inline.UserID != post.UserID {
				_ = s.factory.CreateNotification(post.UserID, models.NotificationCommentOnPost, inline)
			}
			// Some threads get resolved by the post author.
			if rng.Intn(3) == 0 {
				now := inline.CreatedAt.Add(time.Hour)
				updates := map[string]interface{}{
					"resolved":    true,
					"resolved_at": now,
					"resolved_by": post.UserID,
				}
				if err := s.db.Model(inline).Updates(updates).Error; err != nil {
					return err
				}
			}
		}
	}

	log.Printf("created %d comments across %d inline threads", comments, threads)
	return nil
}

// createSocialMesh wires follows, reactions and bookmarks between the
// seeded users and posts.
func (s *Seeder) createSocialMesh(users []*models.User, posts []*models.Post) error {
	rng := s.factory.rng

	for _, follower := range users {
		for i := 0; i < rng.Intn(4); i++ {
			target := users[rng.Intn(len(users))]
			// unique index rejects duplicate pairs, that is fine
			_ = s.factory.CreateFollow(follower, target)
		}
	}

	for _, post := range posts {
		for i := 0; i < rng.Intn(5); i++ {
			user := users[rng.Intn(len(users))]
			_ = s.factory.CreateReaction(user, models.ReactionTargetPost, post.ID)
		}
		if rng.Intn(4) == 0 {
			user := users[rng.Intn(len(users))]
			_ = s.factory.CreateBookmark(user, post)
		}
	}

	return nil
}
