package generate

import (
	"fmt"
	"strings"
)

// BuildPrompt assembles the try-on instruction sent alongside the input
// images. Image numbering shifts depending on whether an identity reference
// is part of the selection.
func BuildPrompt(theme string, hasReference bool) string {
	var instructions []string
	imageIndex := 1

	if hasReference {
		instructions = append(instructions,
			fmt.Sprintf("- Image %d: person identity reference photo. Preserve the person's face, hairstyle, skin tone, and body proportions.", imageIndex))
		imageIndex++
	}
	instructions = append(instructions,
		fmt.Sprintf("- Image %d: TOP garment photo. Use this exact top (same colors/patterns/logos).", imageIndex))
	imageIndex++
	instructions = append(instructions,
		fmt.Sprintf("- Image %d: BOTTOM garment photo. Use this exact bottom (same colors/patterns/logos).", imageIndex))

	var task string
	if hasReference {
		task = "Generate a single full-body (or 3/4 body) photo of the person from the reference photo wearing the referenced top and bottom."
	} else {
		task = "Generate a single full-body photo of a neutral fashion model wearing the referenced top and bottom."
	}

	themeLine := "none"
	if t := strings.TrimSpace(theme); t != "" {
		themeLine = t
	}

	prompt := "You are generating a photorealistic try-on image.\n\n" +
		"INPUTS:\n" + strings.Join(instructions, "\n") + "\n\n" +
		"TASK:\n" + task + "\n\n" +
		"CONSTRAINTS:\n" +
		"- Do NOT change the person's identity.\n" +
		"- Do NOT invent extra clothing items.\n" +
		"- Keep the outfit exactly those two garments.\n" +
		"- Neutral background, realistic lighting, clean result.\n" +
		"- No nudity.\n\n" +
		"THEME (optional): " + themeLine

	return prompt
}
