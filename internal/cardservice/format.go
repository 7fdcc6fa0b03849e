package cardservice

import (
	"fmt"
	"strings"

	"github.com/starford/cardbox/internal/models"
)

// ListLine renders a card as one line of a listing: "    12 (idea) Title [a, b]".
func ListLine(c *models.Card) string {
	return fmt.Sprintf("%6s (%s) %s [%s]", c.ID, c.Type, c.Title, strings.Join(c.Tags, ", "))
}
