package llm

import (
	"encoding/base64"

	"github.com/pavelanni/gradescan/internal/llm/prompts"
	"github.com/pavelanni/gradescan/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// BuildChunkRequest assembles the multimodal grading request for one
// student chunk: the rubric as system instructions, then one user
// message of ordered parts: task framing, the solution-key pages
// between their delimiters (capped at MaxKeyPages, earliest first),
// then the student pages between theirs. Page order is preserved
// end to end; it is the only signal the model has for multi-page
// questions.
func BuildChunkRequest(chunk model.StudentChunk, key model.SolutionKey, cfg model.GradingConfig) (openai.ChatCompletionRequest, error) {
	rubric, err := prompts.BuildRubric(prompts.PromptVariant(cfg.PromptVariant), prompts.RubricData{
		StudentIndex:    chunk.StudentIndex,
		CommentLanguage: cfg.CommentLanguage,
	})
	if err != nil {
		return openai.ChatCompletionRequest{}, err
	}

	parts := []openai.ChatMessagePart{
		textPart(prompts.TaskFraming(chunk.StudentIndex)),
	}

	keyPages := key.Pages
	if len(keyPages) > cfg.MaxKeyPages {
		keyPages = keyPages[:cfg.MaxKeyPages]
	}
	if len(keyPages) > 0 {
		parts = append(parts, textPart(prompts.SolutionKeyStart))
		for _, p := range keyPages {
			parts = append(parts, imagePart(p))
		}
		parts = append(parts, textPart(prompts.SolutionKeyEnd))
	} else {
		parts = append(parts, textPart(prompts.NoKeyWarning))
	}

	parts = append(parts, textPart(prompts.StudentWorkStart))
	for _, p := range chunk.Pages {
		parts = append(parts, imagePart(p))
	}
	parts = append(parts, textPart(prompts.StudentWorkEnd))

	return openai.ChatCompletionRequest{
		Model: cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: rubric,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		Temperature: 0.3,
	}, nil
}

func textPart(text string) openai.ChatMessagePart {
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: text,
	}
}

func imagePart(p model.Page) openai.ChatMessagePart {
	mime := p.MIME
	if mime == "" {
		mime = "image/jpeg"
	}
	return openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(p.Data),
		},
	}
}
