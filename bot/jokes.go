package bot

// Jokes is the list !joke draws from.
var Jokes = []string{
	"I told my friend ten jokes to make him laugh. Sadly, no pun in ten did.",
	"Why don't skeletons watch horror movies? They don't have the guts.",
	"I'm reading a book about anti-gravity. It's impossible to put down.",
	"Why did the scarecrow win an award? He was outstanding in his field.",
	"What do you call a fake noodle? An impasta.",
	"I used to play piano by ear, but now I use my hands.",
	"Why can't a bicycle stand on its own? It's two tired.",
	"What do you call a bear with no teeth? A gummy bear.",
	"Why did the movie theater get cold? It had too many fans.",
	"I would tell you a UDP joke, but you might not get it.",
	"There are 10 kinds of people: those who understand binary and those who don't.",
	"Why do programmers prefer dark mode? Because light attracts bugs.",
	"What's the best thing about Switzerland? I don't know, but the flag is a big plus.",
	"Did you hear about the claustrophobic astronaut? He just needed a little space.",
	"Why did the video buffer go to therapy? It had too many unresolved frames.",
}
