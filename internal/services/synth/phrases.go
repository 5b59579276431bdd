package synth

import "golang.org/x/text/language"

// Preview phrases per supported synthesis language. The matcher's first tag
// is the fallback, so anything outside the supported set renders in English.
var phraseTags = []language.Tag{
	language.English,
	language.Chinese,
	language.MustParse("yue"),
	language.Japanese,
	language.Korean,
}

var phraseTexts = []string{
	"Hello! This is a preview of my newly trained voice. I hope you like how it sounds.",
	"你好！这是我新训练的声音预览。希望你喜欢这个声音。",
	"你好！呢個係我啱啱訓練好嘅聲音預覽。希望你鍾意。",
	"こんにちは！これは新しく学習した声のプレビューです。気に入っていただけると嬉しいです。",
	"안녕하세요! 새로 학습한 목소리의 미리듣기입니다. 마음에 드셨으면 좋겠습니다.",
}

var phraseMatcher = language.NewMatcher(phraseTags)

// PreviewPhrase returns the canned preview sentence for the closest
// supported language along with the tag the sentence is written in.
// Unparsable tags fall back to English.
func PreviewPhrase(lang string) (text, matched string) {
	tag, err := language.Parse(lang)
	if err != nil {
		return phraseTexts[0], phraseTags[0].String()
	}
	_, index, _ := phraseMatcher.Match(tag)
	return phraseTexts[index], phraseTags[index].String()
}
