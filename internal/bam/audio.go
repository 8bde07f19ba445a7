package bam

// AudioExtensions lists the file extensions routed into the dedicated audio
// stream after extraction. Audio must be packed without compression, so it
// cannot share an archive with general content.
var AudioExtensions = []string{".xwm", ".wav", ".fuz"}
