// Package prompt builds the system and user instructions for every
// transformation mode. Builders are pure: the same context and spec always
// produce the same pair of strings.
package prompt

import (
	"fmt"
	"strings"

	"github.com/starford/fiche/internal/models"
	"github.com/starford/fiche/internal/normalize"
)

// Context carries the per-call parameters shared by the builders: the
// subject, style tokens, the source excerpt for derived modes, and
// optional per-subject custom instructions.
type Context struct {
	Subject      models.Subject
	MainColor    string
	AccentColor  string
	FontSize     int
	Excerpt      string
	Instructions string
}

// Spec is one of the fixed transformation variants. The dispatcher in
// Build matches it exhaustively.
type Spec interface {
	Mode() models.Mode
}

// Course generates a study sheet from photographed notes. The images
// travel as message parts, not through the prompt text.
type Course struct{}

// Quiz question formats.
const (
	QuizQCM   = "qcm"
	QuizOpen  = "ouvertes"
	QuizTF    = "vf"
	QuizMixed = "mix"
)

// Difficulty tiers.
const (
	DifficultyEasy   = "facile"
	DifficultyMedium = "moyen"
	DifficultyHard   = "difficile"
)

// Quiz derives revision questions from a source document.
type Quiz struct {
	Format     string
	Count      int
	Difficulty string
}

// Exercise categories.
const (
	ExerciseApplication = "application"
	ExerciseAnalysis    = "analyse"
	ExerciseSynthesis   = "synthese"
	ExerciseProblem     = "probleme"
)

// Exercise derives an exercise set from a source document.
type Exercise struct {
	Kind           string
	Count          int
	WithCorrection bool
}

// Essay structural types.
const (
	EssayFull        = "dissertation"
	EssayCommentary  = "commentaire"
	EssayExplanation = "explication"
	EssayOutline     = "plan"
)

// Essay derives an academic piece on a free-form topic.
type Essay struct {
	Topic string
	Kind  string
}

// Method derives a how-to sheet emphasising procedure over theory.
type Method struct {
	Topic string
}

// Free answers one literal user question grounded in the source excerpt.
type Free struct {
	Question string
}

// ChatDocument converts a full conversation transcript into a standalone
// document.
type ChatDocument struct {
	Transcript string
}

func (Course) Mode() models.Mode       { return models.ModeCourse }
func (Quiz) Mode() models.Mode         { return models.ModeQuiz }
func (Exercise) Mode() models.Mode     { return models.ModeExercise }
func (Essay) Mode() models.Mode        { return models.ModeEssay }
func (Method) Mode() models.Mode       { return models.ModeMethod }
func (Free) Mode() models.Mode         { return models.ModeFree }
func (ChatDocument) Mode() models.Mode { return models.ModeChat }

var quizFormatLabels = map[string]string{
	QuizQCM:   "QCM (questions à choix multiples avec 4 options, 1 bonne réponse)",
	QuizOpen:  "Questions ouvertes (réponses rédigées attendues)",
	QuizTF:    "Vrai/Faux (avec justification de la réponse)",
	QuizMixed: "Mix de QCM, questions ouvertes et Vrai/Faux",
}

var difficultyLabels = map[string]string{
	DifficultyEasy:   "Facile (mémorisation, restitution directe)",
	DifficultyMedium: "Moyen (compréhension, application)",
	DifficultyHard:   "Difficile (analyse, synthèse, esprit critique)",
}

var exerciseLabels = map[string]string{
	ExerciseApplication: "Exercices d'application directe (appliquer une formule, une règle)",
	ExerciseAnalysis:    "Exercices d'analyse (interpréter un document, un graphique, un texte)",
	ExerciseSynthesis:   "Exercices de synthèse (croiser plusieurs notions)",
	ExerciseProblem:     "Problèmes complets (mise en situation réaliste)",
}

var essayLabels = map[string]string{
	EssayFull:        "Dissertation : introduction, développement en parties, conclusion",
	EssayCommentary:  "Commentaire de texte : analyse linéaire ou thématique",
	EssayExplanation: "Explication détaillée du sujet/thème",
	EssayOutline:     "Plan détaillé : structure argumentaire sans rédiger intégralement",
}

// ValidQuizFormat reports whether f is a known quiz format.
func ValidQuizFormat(f string) bool { _, ok := quizFormatLabels[f]; return ok }

// ValidDifficulty reports whether d is a known difficulty tier.
func ValidDifficulty(d string) bool { _, ok := difficultyLabels[d]; return ok }

// ValidExerciseKind reports whether k is a known exercise category.
func ValidExerciseKind(k string) bool { _, ok := exerciseLabels[k]; return ok }

// ValidEssayKind reports whether k is a known essay structural type.
func ValidEssayKind(k string) bool { _, ok := essayLabels[k]; return ok }

const rawHTMLReminder = "\n\nIMPORTANT : Retourne UNIQUEMENT le code HTML (div.page-landscape avec col-a5), sans markdown ni backticks."

// derivedRules is the trailing rule block shared by every derived mode.
func derivedRules(extra ...string) string {
	rules := append([]string{}, extra...)
	rules = append(rules,
		"Retourner UNIQUEMENT du HTML brut au format A4 paysage (div.page-landscape > div.col-a5)",
		"Pas de markdown, pas de backticks",
	)
	var b strings.Builder
	for _, r := range rules {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String()
}

func sourceHeader(ctx Context) string {
	return fmt.Sprintf("## CONTENU DE LA FICHE SOURCE\n%s\n\n## RÈGLES\n- Matière : %s\n", ctx.Excerpt, ctx.Subject)
}

// Build returns the system and user instructions for the given mode.
func Build(ctx Context, spec Spec) (system, user string) {
	switch s := spec.(type) {
	case Course:
		return buildCourse(ctx)
	case Quiz:
		return buildQuiz(ctx, s)
	case Exercise:
		return buildExercise(ctx, s)
	case Essay:
		return buildEssay(ctx, s)
	case Method:
		return buildMethod(ctx, s)
	case Free:
		return buildFree(ctx, s)
	case ChatDocument:
		return buildChatDocument(ctx, s)
	default:
		panic(fmt.Sprintf("prompt: unknown spec %T", spec))
	}
}

func buildCourse(ctx Context) (string, string) {
	var custom string
	if ctx.Instructions != "" {
		custom = fmt.Sprintf("\n## CONSIGNES SPÉCIFIQUES À LA MATIÈRE\n\n%s\n", ctx.Instructions)
	}

	system := fmt.Sprintf(`Tu es un assistant spécialisé dans la transformation de notes manuscrites en fiches HTML imprimables au format A4 paysage (2 colonnes A5).

## ARCHITECTURE HTML OBLIGATOIRE

Structure de base :
<div class="page-landscape">
    <div class="col-a5">[Colonne gauche]</div>
    <div class="col-a5">[Colonne droite]</div>
</div>

Règles critiques :
- TOUJOURS utiliser display:flex sur .page-landscape
- Chaque .col-a5 = 50%% width avec box-sizing:border-box
- Dimensions fixes : width:29.7cm; height:21cm
- NE JAMAIS utiliser column-count CSS
- Multi-pages : dupliquer la div.page-landscape

## CSS COMPLET À INCLURE (copier tel quel)

%s

## 4 BLOCS STANDARDS

.box → sections standard
.important → définitions clés (bordure gauche colorée)
.formula-box → formules mathématiques
.synthesis-full → synthèses/questions d'examen (fond orange)

## HIÉRARCHIE

h1 → titre principal (1 seul, page 1 uniquement)
h2 → chapitres (fond coloré blanc)
h3 → sous-sections
.tag → mots-clés inline

## RÈGLES ABSOLUES DE FIDÉLITÉ

- Conserver 100%% du contenu manuscrit sans exception
- Conserver les abréviations exactes ("qd", "tjrs", "→", etc.)
- Conserver les fautes d'orthographe et de grammaire originales
- Ne JAMAIS reformuler, synthétiser ou ajouter du contenu
- Utiliser autant de pages (.page-landscape) que nécessaire
- Ne pas inclure de panneau UI (géré par l'app)
- Retourner UNIQUEMENT le code HTML brut, sans markdown%s`,
		normalize.Stylesheet(normalize.Style{
			MainColor:   ctx.MainColor,
			AccentColor: ctx.AccentColor,
			FontSize:    ctx.FontSize,
		}), custom)

	user := fmt.Sprintf(`Génère la fiche HTML pour ces notes.
Matière : %s
Couleur principale : %s
Couleur accent : %s
Taille de police par défaut : %dpx

IMPORTANT : Retourne UNIQUEMENT le code HTML complet (commençant par <!DOCTYPE html> ou <div class="page-landscape">), sans markdown, sans backticks, sans explication.`,
		ctx.Subject, ctx.MainColor, ctx.AccentColor, ctx.FontSize)

	return system, user
}

func buildQuiz(ctx Context, s Quiz) (string, string) {
	format, ok := quizFormatLabels[s.Format]
	if !ok {
		format = quizFormatLabels[QuizMixed]
	}
	difficulty, ok := difficultyLabels[s.Difficulty]
	if !ok {
		difficulty = difficultyLabels[DifficultyMedium]
	}

	system := "Tu es un professeur qui crée des questions de révision à partir du contenu d'une fiche de cours.\n\n" +
		sourceHeader(ctx) +
		fmt.Sprintf("- Créer exactement %d questions\n- Format : %s\n- Difficulté : %s\n", s.Count, format, difficulty) +
		derivedRules(
			"TOUJOURS inclure les réponses/corrections après chaque question dans un bloc .correction",
			"Les questions doivent couvrir les points clés du cours",
		)

	user := fmt.Sprintf("Génère %d questions de type \"%s\" en difficulté \"%s\" à partir du cours ci-dessus.%s",
		s.Count, s.Format, s.Difficulty, rawHTMLReminder)
	return system, user
}

func buildExercise(ctx Context, s Exercise) (string, string) {
	kind, ok := exerciseLabels[s.Kind]
	if !ok {
		kind = exerciseLabels[ExerciseApplication]
	}
	correction := "NE PAS inclure de corrigé"
	if s.WithCorrection {
		correction = "Inclure un corrigé détaillé pour chaque exercice dans un bloc .correction"
	}

	system := "Tu es un professeur qui crée des exercices à partir du contenu d'une fiche de cours.\n\n" +
		sourceHeader(ctx) +
		fmt.Sprintf("- Créer exactement %d exercice(s)\n- Type : %s\n", s.Count, kind) +
		derivedRules(correction, "Exercices progressifs en difficulté")

	var suffix string
	if s.WithCorrection {
		suffix = " Inclus le corrigé détaillé."
	}
	user := fmt.Sprintf("Génère %d exercice(s) de type \"%s\" à partir du cours ci-dessus.%s%s",
		s.Count, s.Kind, suffix, rawHTMLReminder)
	return system, user
}

func buildEssay(ctx Context, s Essay) (string, string) {
	kind, ok := essayLabels[s.Kind]
	if !ok {
		kind = essayLabels[EssayExplanation]
	}

	system := "Tu es un professeur qui aide à la rédaction académique à partir du contenu d'une fiche de cours.\n\n" +
		sourceHeader(ctx) +
		fmt.Sprintf("- Type de travail : %s\n", kind) +
		derivedRules(
			"Utiliser les connaissances du cours comme base",
			"Structure claire avec titres et sous-titres",
		)

	user := fmt.Sprintf("Sujet : \"%s\"\nType : %s\n\nRédige ce travail en utilisant les connaissances du cours ci-dessus.%s",
		s.Topic, s.Kind, rawHTMLReminder)
	return system, user
}

func buildMethod(ctx Context, s Method) (string, string) {
	system := "Tu es un professeur qui crée des fiches méthode à partir du contenu d'un cours.\n\n" +
		sourceHeader(ctx) +
		derivedRules(
			"Créer une fiche méthode claire et pratique",
			"Structure : étapes numérotées, conseils, pièges à éviter, exemples tirés du cours",
			"Focus sur le \"comment faire\" (pas sur le contenu théorique)",
		)

	user := fmt.Sprintf("Crée une fiche méthode sur le thème : \"%s\"\n\nUtilise le contenu du cours comme base pour les exemples et les applications.%s",
		s.Topic, rawHTMLReminder)
	return system, user
}

func buildFree(ctx Context, s Free) (string, string) {
	system := "Tu es un assistant scolaire. Tu as accès au contenu d'une fiche de cours et tu dois répondre à la question de l'élève de manière complète et structurée.\n\n" +
		sourceHeader(ctx) +
		derivedRules(
			"Répondre de façon claire, pédagogique et structurée",
			"Utiliser les connaissances du cours quand c'est pertinent",
		)

	user := fmt.Sprintf("Question de l'élève : \"%s\"\n\nRéponds en utilisant le contenu du cours ci-dessus comme contexte.%s",
		s.Question, rawHTMLReminder)
	return system, user
}

func buildChatDocument(ctx Context, s ChatDocument) (string, string) {
	system := "Tu transformes une conversation pédagogique en fiche de révision HTML imprimable au format A4 paysage.\n\n" +
		fmt.Sprintf("## RÈGLES\n- Matière : %s\n", ctx.Subject) +
		derivedRules(
			"Extraire les points clés, explications et exemples de la conversation",
			"Structurer en fiche claire avec titres, sous-titres, encadrés",
			"Format : div.page-landscape > div.col-a5",
		)

	user := fmt.Sprintf("Voici la conversation à transformer en fiche :\n\n%s%s", s.Transcript, rawHTMLReminder)
	return system, user
}

// ChatSystem returns the grounding system prompt of the conversational
// mode. Chat replies are plain text with light markdown, not HTML.
func ChatSystem(ctx Context) string {
	return fmt.Sprintf(`Tu es un assistant scolaire bienveillant et pédagogue. Tu discutes avec un(e) élève à propos d'une fiche de cours.

## CONTENU DE LA FICHE SOURCE
%s

## RÈGLES
- Matière : %s
- Réponds de façon claire, concise et adaptée au niveau lycée
- Utilise le contenu du cours comme référence
- Tu peux expliquer, donner des exemples, poser des questions pour vérifier la compréhension
- Réponds en texte simple (pas de HTML), utilise du markdown léger si besoin (gras, listes)
- Sois encourageant et bienveillant`, ctx.Excerpt, ctx.Subject)
}
