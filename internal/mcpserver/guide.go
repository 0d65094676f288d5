package mcpserver

// IncludeSyntaxGuide summarizes how Kodi skin include files are declared and
// referenced, for LLM consumers editing a skin.
const IncludeSyntaxGuide = `# Kodi Skin Include Syntax

Each resolution folder of a skin (listed as <res folder="..."> in addon.xml)
has its own include table, built from Includes.xml (or includes.xml).

## Declarations

` + "```" + `xml
<includes>
	<include file="Buttons.xml"/>                  <!-- pulls in another file of the same folder -->
	<include name="DefaultBackground">...</include> <!-- reusable XML fragment -->
	<variable name="LabelVar">...</variable>
	<constant name="PosX">20</constant>
	<expression name="IsPlaying">Player.HasMedia</expression>
</includes>
` + "```" + `

## Rules

1. Only <include file="..."> elements directly below the root are followed.
   Paths are relative to the folder. script-skinshortcuts-includes.xml is never followed.
2. Every include, variable, constant and expression with a name attribute is recorded,
   in any nesting depth.
3. When a name is declared twice, the declaration found last wins.
4. A reference is an element <include>Name</include> whose text is the name.
   Resolving it replaces the reference with the declaration, recursively.
5. References that name nothing, or that would recurse into themselves, are left as-is.
6. A missing or malformed include file is skipped; the rest of the folder still loads.
`
