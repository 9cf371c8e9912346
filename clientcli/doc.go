// Package clientcli provides a client library for the filevault HTTP API.
//
// Uploads run in two steps: the client registers an upload intent with the
// API, then streams the file to the presigned URL the API returns. Downloads
// mirror this. API requests carry a bearer token; object transfers carry
// only the URL's own signature.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{
//		Endpoint: "http://localhost:5708",
//		Token:    os.Getenv("FILEVAULT_TOKEN"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath: "./report.pdf",
//	})
//
// # Profile Configuration
//
// Profiles live in ~/.filevault/config.yaml:
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := clientcli.New(clientcli.ConfigFromProfile(profile))
package clientcli
