package ops

import (
	"time"

	"github.com/hpungsan/ugcboard/internal/post"
)

var jst = time.FixedZone("JST", 9*60*60)

// at builds a JST timestamp.
func at(y int, m time.Month, d, hh, mm, ss int) time.Time {
	return time.Date(y, m, d, hh, mm, ss, 0, jst)
}

// mk builds a valid post with the fields tests usually care about.
func mk(platform post.Platform, date time.Time, likes int, category string) post.Post {
	return post.Post{
		Platform:        platform,
		Username:        "user-" + string(platform),
		PostDate:        date,
		Likes:           likes,
		CategoryKeyword: category,
	}
}
