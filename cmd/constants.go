package cmd

// DefaultArtifactsFilename is the artifacts file name looked for in the working directory when --artifacts is not
// given, mirroring the teacher's DefaultProjectConfigFilename convention.
const DefaultArtifactsFilename = "artifacts.json"
