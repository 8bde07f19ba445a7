package bam

// knownVanillaArchives lists the official base-game and DLC archive file
// names. An archive with one of these names found outside the base
// installation tree is a replacement, not new content.
var knownVanillaArchives = []string{
	"Fallout4.ba2",
	"Fallout4 - Textures.ba2",
	"Fallout4 - Textures1.ba2",
	"Fallout4 - Textures2.ba2",
	"Fallout4 - Textures3.ba2",
	"Fallout4 - Textures4.ba2",
	"Fallout4 - Textures5.ba2",
	"Fallout4 - Textures6.ba2",
	"Fallout4 - Textures7.ba2",
	"Fallout4 - Textures8.ba2",
	"Fallout4 - Textures9.ba2",
	"Fallout4 - Voices.ba2",
	"Fallout4 - Startup.ba2",
	"Fallout4 - Interface.ba2",
	"Fallout4 - Meshes.ba2",
	"Fallout4 - MeshesExtra.ba2",
	"Fallout4 - Misc.ba2",
	"Fallout4 - Sounds.ba2",
	"Fallout4 - Materials.ba2",
	"Fallout4 - Animations.ba2",
	"DLCRobot.ba2",
	"DLCRobot - Textures.ba2",
	"DLCworkshop01.ba2",
	"DLCworkshop01 - Textures.ba2",
	"DLCCoast.ba2",
	"DLCCoast - Textures.ba2",
	"DLCNukaWorld.ba2",
	"DLCNukaWorld - Textures.ba2",
	"DLCworkshop02.ba2",
	"DLCworkshop02 - Textures.ba2",
	"DLCworkshop03.ba2",
	"DLCworkshop03 - Textures.ba2",
}
