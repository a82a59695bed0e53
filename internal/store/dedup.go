package store

import "github.com/socialstudio/ugc-collector/internal/models"

// Partition splits a normalized batch by permalink membership into posts not
// yet persisted and posts the store already holds. The membership set comes
// from one batched ExistingPermalinks lookup; if that lookup failed, the run
// must abort rather than treat everything as new.
func Partition(posts []models.Post, existing map[string]struct{}) (fresh, known []models.Post) {
	for _, post := range posts {
		if _, ok := existing[post.Permalink]; ok {
			known = append(known, post)
		} else {
			fresh = append(fresh, post)
		}
	}
	return fresh, known
}
