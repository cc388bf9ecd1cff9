package formatter

import (
	"github.com/go-telegram/bot/models"

	appmodels "github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

// BuildResultKeyboard creates an inline keyboard opening a link result.
// Code results have no keyboard.
func BuildResultKeyboard(r *appmodels.ExtractionResult) *models.InlineKeyboardMarkup {
	if r.Kind != appmodels.KindURL || r.Payload == "" {
		return nil
	}

	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: r.Category.Label(), URL: r.Payload},
			},
		},
	}
}
