package prompt

import (
	"strings"
	"testing"

	"github.com/starford/fiche/internal/models"
)

func testContext() Context {
	return Context{
		Subject:     models.SubjectMath,
		MainColor:   "#2980b9",
		AccentColor: "#27ae60",
		FontSize:    14,
		Excerpt:     "Les suites arithmétiques et géométriques.",
	}
}

func TestBuildCourseEmbedsStyle(t *testing.T) {
	system, user := Build(testContext(), Course{})
	if !strings.Contains(system, "--main-color: #2980b9") {
		t.Error("system prompt missing stylesheet main color")
	}
	if !strings.Contains(user, "Matière : Mathématiques") {
		t.Error("user prompt missing subject")
	}
	if !strings.Contains(user, "14px") {
		t.Error("user prompt missing font size")
	}
	if strings.Contains(system, "CONSIGNES SPÉCIFIQUES") {
		t.Error("custom instruction section present without instructions")
	}
}

func TestBuildCourseCustomInstructions(t *testing.T) {
	ctx := testContext()
	ctx.Instructions = "Toujours encadrer les formules."
	system, _ := Build(ctx, Course{})
	if !strings.Contains(system, "CONSIGNES SPÉCIFIQUES À LA MATIÈRE") {
		t.Error("custom instruction header missing")
	}
	if !strings.Contains(system, "Toujours encadrer les formules.") {
		t.Error("custom instruction text missing")
	}
}

func TestBuildQuizParameters(t *testing.T) {
	system, user := Build(testContext(), Quiz{Format: QuizQCM, Count: 15, Difficulty: DifficultyHard})
	if !strings.Contains(system, "Créer exactement 15 questions") {
		t.Error("count missing from system prompt")
	}
	if !strings.Contains(system, "QCM") {
		t.Error("format label missing")
	}
	if !strings.Contains(system, "Difficile") {
		t.Error("difficulty label missing")
	}
	if !strings.Contains(system, "Les suites arithmétiques") {
		t.Error("source excerpt missing")
	}
	if !strings.Contains(user, `"qcm"`) || !strings.Contains(user, `"difficile"`) {
		t.Errorf("user prompt missing parameters: %q", user)
	}
}

func TestBuildQuizUnknownValuesFallBack(t *testing.T) {
	system, _ := Build(testContext(), Quiz{Format: "???", Count: 5, Difficulty: "???"})
	if !strings.Contains(system, "Mix de QCM") {
		t.Error("unknown format should fall back to mix")
	}
	if !strings.Contains(system, "Moyen") {
		t.Error("unknown difficulty should fall back to moyen")
	}
}

func TestBuildExerciseCorrectionToggle(t *testing.T) {
	with, _ := Build(testContext(), Exercise{Kind: ExerciseAnalysis, Count: 2, WithCorrection: true})
	if !strings.Contains(with, "corrigé détaillé") {
		t.Error("correction rule missing")
	}
	without, _ := Build(testContext(), Exercise{Kind: ExerciseAnalysis, Count: 2})
	if !strings.Contains(without, "NE PAS inclure de corrigé") {
		t.Error("no-correction rule missing")
	}
}

func TestBuildEssayAndMethodEmbedTopic(t *testing.T) {
	_, user := Build(testContext(), Essay{Topic: "La convergence", Kind: EssayFull})
	if !strings.Contains(user, `Sujet : "La convergence"`) {
		t.Errorf("essay topic missing: %q", user)
	}
	_, user = Build(testContext(), Method{Topic: "Étudier une suite"})
	if !strings.Contains(user, `"Étudier une suite"`) {
		t.Errorf("method topic missing: %q", user)
	}
}

func TestBuildFreeEmbedsQuestion(t *testing.T) {
	_, user := Build(testContext(), Free{Question: "C'est quoi une suite ?"})
	if !strings.Contains(user, `Question de l'élève : "C'est quoi une suite ?"`) {
		t.Errorf("question missing: %q", user)
	}
}

func TestDerivedPromptsDemandRawHTML(t *testing.T) {
	specs := []Spec{
		Quiz{Format: QuizMixed, Count: 10, Difficulty: DifficultyMedium},
		Exercise{Kind: ExerciseApplication, Count: 3},
		Essay{Topic: "t", Kind: EssayOutline},
		Method{Topic: "t"},
		Free{Question: "q"},
		ChatDocument{Transcript: "Élève : bonjour"},
	}
	for _, s := range specs {
		system, user := Build(testContext(), s)
		if !strings.Contains(system, "Pas de markdown, pas de backticks") {
			t.Errorf("%s: system missing raw-HTML rule", s.Mode())
		}
		if !strings.Contains(user, "sans markdown ni backticks") {
			t.Errorf("%s: user missing raw-HTML reminder", s.Mode())
		}
	}
}

func TestChatSystemGroundsOnExcerpt(t *testing.T) {
	system := ChatSystem(testContext())
	if !strings.Contains(system, "Les suites arithmétiques") {
		t.Error("chat system missing source excerpt")
	}
	if !strings.Contains(system, "texte simple (pas de HTML)") {
		t.Error("chat system missing plain-text rule")
	}
}

func TestValidators(t *testing.T) {
	if !ValidQuizFormat(QuizTF) || ValidQuizFormat("x") {
		t.Error("quiz format validation broken")
	}
	if !ValidDifficulty(DifficultyEasy) || ValidDifficulty("") {
		t.Error("difficulty validation broken")
	}
	if !ValidExerciseKind(ExerciseProblem) || ValidExerciseKind("qcm") {
		t.Error("exercise kind validation broken")
	}
	if !ValidEssayKind(EssayCommentary) || ValidEssayKind("probleme") {
		t.Error("essay kind validation broken")
	}
}
