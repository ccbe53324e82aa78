package mcpserver

// PageFormatContract describes the canonical HTML page format that LLM
// consumers should follow when reading or producing study sheets.
const PageFormatContract = `# Fiche Page Format Contract

Every study sheet stored in Fiche is a self-contained HTML document laid
out as printable A4 landscape pages.

## Structure

` + "```" + `html
<div class="page-landscape">
    <div class="col-a5">[left column]</div>
    <div class="col-a5">[right column]</div>
</div>
` + "```" + `

## Rules

1. **One ` + "`" + `div.page-landscape` + "`" + ` per printed page.** Multi-page sheets repeat
   the block; never rely on CSS column-count.
2. **Exactly two ` + "`" + `div.col-a5` + "`" + ` columns per page**, 50% width each with
   box-sizing:border-box. Page dimensions are fixed: 29.7cm x 21cm.
3. **One ` + "`" + `h1` + "`" + ` per document**, on the first page only. It is the document
   title everywhere in the app.
4. ` + "`" + `h2` + "`" + ` marks chapters (white text on the main color), ` + "`" + `h3` + "`" + ` marks
   sub-sections.
5. **Content blocks:**
   - ` + "`" + `.box` + "`" + ` for standard sections
   - ` + "`" + `.important` + "`" + ` for key definitions (colored left border)
   - ` + "`" + `.formula-box` + "`" + ` for mathematical formulas
   - ` + "`" + `.synthesis-full` + "`" + ` for syntheses and exam questions (orange background)
   - ` + "`" + `.correction` + "`" + ` for answers in quizzes and exercise sets
   - ` + "`" + `.question-block` + "`" + ` for individual quiz questions
6. **Raw HTML only.** No markdown fences, no surrounding explanation.
7. **Encoding** is UTF-8; the document language is French.

## Derived documents

Documents generated from a source sheet carry a ` + "`" + `type` + "`" + ` tag
(questions, exercices, redaction, methode, libre, chat) and a
` + "`" + `parentId` + "`" + ` referencing the source. The source document itself has type
"cours" and no parent.
`
