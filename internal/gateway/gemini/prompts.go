package gemini

import (
	"fmt"

	"google.golang.org/genai"
)

func expandScriptPrompt(idea string) string {
	return fmt.Sprintf(`You are a creative assistant who specializes in screenwriting. Your task is to take a simple idea and turn it into a narrative video script.
Do this in two steps:
1. Expansion: expand the idea into a richly detailed cinematic scene description.
2. Script writing: based on that description, write a short script divided into scenes.
The final output must be the script only.
User idea: "%s"`, idea)
}

func summarizeScriptPrompt(script string) string {
	return fmt.Sprintf(`You are an expert assistant director. Read the following script and summarize it into a single concise, powerful instruction for a video generator.
The summary must capture the essence of the story, how events develop, and the overall mood.
The output must be a creative description the video generator can use to create one complete scene that represents the whole story.

Script:
"%s"

Now write the concise instruction for the video generator.`, script)
}

func narrationPrompt(videoPrompt string) string {
	return fmt.Sprintf(`You are a professional voice-over artist and copywriter. Read the following video description and write exactly one short, concise, engaging narrative sentence suitable for voice-over.
The narration should describe the scene creatively and evoke emotion.
The output must be the narration text only, with no preamble and no quotation marks.

Video description:
"%s"

Now write the narration.`, videoPrompt)
}

func extractShotsPrompt(script string) string {
	return fmt.Sprintf(`You are an expert assistant director. Read the following script and split it into individual, sequential shots.
For each shot, extract two pieces of information:
1. visual: a brief, clear visual description of the scene (what should appear in the video).
2. overlay: the text that accompanies this shot (dialogue or descriptive commentary) and should appear on screen.
The final output must be a valid JSON array of objects. Each object must contain only the keys 'visual' and 'overlay'.

Script:
"%s"

Now create the JSON array of shots.`, script)
}

const analyzeDocumentPrompt = `You are an expert at analyzing documents and turning them into concise, engaging video scripts.
Analyze the attached file (it may be a PDF, Word or PowerPoint document) and do the following:
1. Extract the key ideas and main points.
2. Write a short video script, divided into scenes, that summarizes this content visually and is suitable for turning into a video.
The final output must be the script only, with no introductions or extra explanations.`

const analyzeImagesPrompt = `You are a film director and expert storyteller. Your task is to analyze a series of images provided by the user and create a coherent storyboard.
For each image, in order, produce two pieces of information:
1. visual: a brief, clear visual description for an AI video generator to animate that specific image.
2. overlay: one short narrative sentence that should appear as text on the video for that image, helping to tell the story.
The final output must be a valid JSON array of objects. Each object must contain only the keys 'visual' and 'overlay'.

Analyze the following images and create the JSON storyboard.`

// beatsSchema constrains structured output to [{visual, overlay}].
var beatsSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"visual": {
				Type:        genai.TypeString,
				Description: "Visual description of the shot for the video generator.",
			},
			"overlay": {
				Type:        genai.TypeString,
				Description: "Accompanying text (dialogue or narration) shown as an overlay on this shot.",
			},
		},
		Required: []string{"visual", "overlay"},
	},
}
