package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Identifier derives the deterministic reminder identifier for one
// (course, session) pair. Collisions between repeated runs are intentional:
// the identifier is the dedup key for both the local mirror and the OS
// notification queue.
func Identifier(courseID string, sessionStart time.Time) string {
	return fmt.Sprintf("course-%s-%d", courseID, sessionStart.Unix())
}

// CoursePrefix is the identifier prefix shared by every reminder of one
// course, used to cancel them as a group.
func CoursePrefix(courseID string) string {
	return fmt.Sprintf("course-%s-", courseID)
}

// BelongsTo reports whether identifier was produced for the given course.
func BelongsTo(identifier, courseID string) bool {
	return strings.HasPrefix(identifier, CoursePrefix(courseID))
}

// DedupKey is the durable dispatch dedup key for a (user, course, session)
// triple.
func DedupKey(userID, courseID string, sessionStart time.Time) string {
	return fmt.Sprintf("%s#%s#%d", userID, courseID, sessionStart.Unix())
}
