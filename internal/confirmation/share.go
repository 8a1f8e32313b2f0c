package confirmation

import (
	"fmt"
	"net/url"
	"strings"
)

// ShareText is the message pre-filled in the share link.
func ShareText(c *Card) string {
	return fmt.Sprintf("I just donated blood! Type: %s, Date: %s, Location: %s",
		c.BloodType.Label(), c.DonatedAt.Format(dateLayout), c.Location.Name)
}

// ShareURL builds the messaging deep link, e.g. https://wa.me/?text=...
func ShareURL(base string, c *Card) string {
	// QueryEscape writes spaces as '+', which the share target would keep.
	text := strings.ReplaceAll(url.QueryEscape(ShareText(c)), "+", "%20")
	return base + "?text=" + text
}
