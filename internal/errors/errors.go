package errors

import "errors"

// Vault errors indicate issues with the vault file or its contents.
var (
	// ErrVaultNotInitialized indicates no vault file exists yet.
	ErrVaultNotInitialized = errors.New("vault has not been initialized")

	// ErrVaultAlreadyInitialized indicates a vault file already exists at the path.
	ErrVaultAlreadyInitialized = errors.New("vault has already been initialized")

	// ErrVaultCorrupt indicates the vault file exists but is not a valid vault document.
	ErrVaultCorrupt = errors.New("vault file is structurally invalid")

	// ErrProjectNotFound indicates the named project does not exist in the vault.
	ErrProjectNotFound = errors.New("project not found")

	// ErrProjectExists indicates a project with that name already exists.
	ErrProjectExists = errors.New("project already exists")

	// ErrSecretNotFound indicates the secret key does not exist in the project.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrSecretExists indicates a secret with that key already exists in the project.
	ErrSecretExists = errors.New("secret already exists")
)

// Encryption errors indicate failures in the external encryption tool.
var (
	// ErrSopsNotFound indicates the sops binary is not on PATH.
	ErrSopsNotFound = errors.New("sops binary not found")

	// ErrEncryptFailed indicates file encryption failed.
	ErrEncryptFailed = errors.New("failed to encrypt file")

	// ErrDecryptFailed indicates file decryption failed.
	ErrDecryptFailed = errors.New("failed to decrypt file")

	// ErrNoKeyGroups indicates encryption was requested without any key groups configured.
	ErrNoKeyGroups = errors.New("no encryption key groups configured")
)

// Registry errors indicate issues with service catalog lookups.
var (
	// ErrServiceNotFound indicates the service id is not in the registry.
	ErrServiceNotFound = errors.New("service not found in registry")

	// ErrNoCLISupport indicates the service has no CLI tool to harvest from.
	ErrNoCLISupport = errors.New("service does not support CLI harvesting")
)

// Harvest errors indicate failures during a harvest session.
var (
	// ErrToolNotInstalled indicates the CLI tool could not be found or installed.
	ErrToolNotInstalled = errors.New("CLI tool is not installed")

	// ErrInstallFailed indicates the install command ran but the tool still cannot be probed.
	ErrInstallFailed = errors.New("tool installation failed")

	// ErrAuthFailed indicates the authentication command failed.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrNoCredentialsFound indicates extraction completed without finding a credential.
	ErrNoCredentialsFound = errors.New("no credentials found")

	// ErrExtractionUnsupported indicates the configured extraction method is not implemented.
	ErrExtractionUnsupported = errors.New("extraction method not supported")

	// ErrConfigFileNotFound indicates the tool's credential config file does not exist.
	ErrConfigFileNotFound = errors.New("credential config file not found")
)
